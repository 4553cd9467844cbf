// Package pool implements a bounded, blocking pool of live database
// connections with lazy growth up to a maximum size.
package pool

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrTimeout is returned by Acquire when no connection becomes available
// within the total allotted time.
var ErrTimeout = errors.New("pool: no connection available within timeout")

// Conn is a live database session. At any moment it is owned by exactly one
// of: the pool's available set, or a single caller that acquired it. A caller
// must either Release the connection back or let the pool close it; it must
// never be silently dropped.
type Conn interface {
	Close() error
}

// Factory creates a new connection. Implementations must hand back sessions
// with explicit commit semantics (no implicit auto-commit).
type Factory func() (Conn, error)

// Pool is a bounded set of reusable connections. The available set is a
// buffered channel sized at maxSize; current size bookkeeping is guarded by
// its own mutex so on-demand creation cannot race with concurrent releases.
type Pool struct {
	factory Factory
	conns   chan Conn
	maxSize int

	mu   sync.Mutex
	size int
}

// New builds a pool and eagerly creates minSize connections. Each creation
// failure is logged and skipped, so the pool may start smaller than minSize.
func New(factory Factory, minSize, maxSize int) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	if minSize > maxSize {
		minSize = maxSize
	}
	p := &Pool{
		factory: factory,
		conns:   make(chan Conn, maxSize),
		maxSize: maxSize,
	}
	slog.Info("Initializing connection pool", "min_size", minSize, "max_size", maxSize)
	for i := 0; i < minSize; i++ {
		if err := p.create(); err != nil {
			slog.Error("Failed to create connection", "error", err)
		}
	}
	return p
}

// create dials one connection and puts it in the available set, counting it
// against the pool size. No-op when the pool is already at capacity.
func (p *Pool) create() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.size >= p.maxSize {
		return nil
	}
	conn, err := p.factory()
	if err != nil {
		return err
	}
	p.conns <- conn
	p.size++
	slog.Debug("Created new connection", "pool_size", p.size)
	return nil
}

// Acquire blocks up to timeout for an available connection. If the wait
// expires and the pool is below its maximum, a connection is created on
// demand and handed to the caller; an on-demand creation failure surfaces to
// this caller. At capacity, the call waits on the available set once more
// before failing with ErrTimeout.
func (p *Pool) Acquire(timeout time.Duration) (Conn, error) {
	select {
	case conn := <-p.conns:
		return conn, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case conn := <-p.conns:
		return conn, nil
	case <-timer.C:
	}

	p.mu.Lock()
	if p.size < p.maxSize {
		conn, err := p.factory()
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		p.size++
		slog.Debug("Created connection on demand", "pool_size", p.size)
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	retry := time.NewTimer(timeout)
	defer retry.Stop()
	select {
	case conn := <-p.conns:
		return conn, nil
	case <-retry.C:
		return nil, ErrTimeout
	}
}

// Release returns a connection to the available set. When the set is already
// full the surplus connection is closed and the pool shrinks instead; a
// worker is never stalled on release. A nil connection is a no-op.
func (p *Pool) Release(conn Conn) {
	if conn == nil {
		return
	}
	select {
	case p.conns <- conn:
	default:
		if err := conn.Close(); err != nil {
			slog.Debug("Error closing surplus connection", "error", err)
		}
		p.mu.Lock()
		p.size--
		p.mu.Unlock()
	}
}

// CloseAll drains and closes every available connection. Connections
// currently checked out are not reclaimed; callers are responsible for
// releasing them before shutdown. Safe to call more than once.
func (p *Pool) CloseAll() {
	slog.Info("Closing all connections in pool")
	for {
		select {
		case conn := <-p.conns:
			if err := conn.Close(); err != nil {
				slog.Debug("Error closing connection", "error", err)
			}
			p.mu.Lock()
			p.size--
			p.mu.Unlock()
		default:
			slog.Info("All connections closed")
			return
		}
	}
}

// Size reports how many connections have been created and not yet closed,
// whether available or checked out.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Available reports how many connections are idle in the pool.
func (p *Pool) Available() int {
	return len(p.conns)
}
