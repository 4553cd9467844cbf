// Package adapter encapsulates database-specific SQL and driver behavior
// behind a fixed operation set. The load-test core is written against the
// Adapter interface only; one variant exists per supported database product,
// selected at construction time through the type registry.
package adapter

import (
	"context"
	"time"

	"github.com/bit2swaz/dbflood/internal/pool"
)

// DefaultAcquireTimeout bounds how long GetConnection waits on the pool.
const DefaultAcquireTimeout = 30 * time.Second

// Config holds the connection parameters for a target database.
type Config struct {
	Type           string
	Host           string
	Port           int
	Database       string
	SID            string
	User           string
	Password       string
	MinPoolSize    int
	MaxPoolSize    int
	AcquireTimeout time.Duration
}

func (c Config) acquireTimeout() time.Duration {
	if c.AcquireTimeout > 0 {
		return c.AcquireTimeout
	}
	return DefaultAcquireTimeout
}

// Row is the slice of a load_test row that the harness verifies after a
// committed insert.
type Row struct {
	ID       int64
	WorkerID string
	Value    string
}

// Adapter is the capability each database product implements. Connections
// handed out have auto-commit disabled; the worker controls transaction
// boundaries through Commit and Rollback.
type Adapter interface {
	// CreatePool dials the database and builds a ready connection pool.
	CreatePool(ctx context.Context, cfg Config) (*pool.Pool, error)
	// GetConnection acquires a connection, blocking up to the configured
	// acquire timeout.
	GetConnection() (pool.Conn, error)
	// ReleaseConnection returns a connection to the pool. When isError is
	// set a rollback is attempted first; rollback failures never propagate.
	ReleaseConnection(conn pool.Conn, isError bool)
	// ClosePool drains the pool and closes the underlying database handle.
	ClosePool()
	// ExecuteInsert inserts one row tagged with the worker identity and
	// returns its generated identifier.
	ExecuteInsert(ctx context.Context, conn pool.Conn, workerID, payload string) (int64, error)
	// ExecuteSelect fetches the row by identifier. A missing row returns
	// (nil, nil): absence is a legitimate, if noteworthy, outcome.
	ExecuteSelect(ctx context.Context, conn pool.Conn, id int64) (*Row, error)
	// Commit commits the connection's open transaction.
	Commit(conn pool.Conn) error
	// Rollback rolls back best-effort; failures are swallowed.
	Rollback(conn pool.Conn)
	// DDL returns the schema definition for operator reference.
	DDL() string
}
