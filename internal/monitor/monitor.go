// Package monitor periodically samples the metrics registry and logs average
// and interval throughput.
package monitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bit2swaz/dbflood/internal/metrics"
	"github.com/bit2swaz/dbflood/internal/pool"
)

// Monitor wakes on a fixed interval until the deadline passes or Stop is
// called, whichever comes first.
type Monitor struct {
	registry *metrics.Registry
	pool     *pool.Pool
	interval time.Duration
	deadline time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	lastInserts int64
	lastSample  time.Time
}

// New creates a monitor. pool may be nil; when set, the pool-size gauge is
// refreshed on every sample.
func New(reg *metrics.Registry, p *pool.Pool, interval time.Duration, deadline time.Time) *Monitor {
	return &Monitor{
		registry: reg,
		pool:     p,
		interval: interval,
		deadline: deadline,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sampling loop in its own goroutine.
func (m *Monitor) Start() {
	go m.run()
}

func (m *Monitor) run() {
	defer close(m.done)
	slog.Info("Starting performance monitor", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.lastSample = time.Now()

	for {
		select {
		case <-m.stop:
			slog.Info("Stopping performance monitor")
			return
		case now := <-ticker.C:
			m.sample(now)
			if !now.Before(m.deadline) {
				slog.Info("Stopping performance monitor")
				return
			}
		}
	}
}

func (m *Monitor) sample(now time.Time) {
	stats := m.registry.Stats()
	if m.pool != nil {
		metrics.SetPoolSize(m.pool.Size())
	}

	intervalSeconds := now.Sub(m.lastSample).Seconds()
	intervalTPS := 0.0
	if intervalSeconds > 0 {
		intervalTPS = float64(stats.TotalInserts-m.lastInserts) / intervalSeconds
	}

	slog.Info("Monitor stats",
		"inserts", stats.TotalInserts,
		"selects", stats.TotalSelects,
		"errors", stats.TotalErrors,
		"verification_failures", stats.VerificationFailures,
		"connection_recreates", stats.ConnectionRecreates,
		"avg_tps", round2(stats.TPS),
		"interval_tps", round2(intervalTPS),
		"elapsed_seconds", round2(stats.ElapsedSeconds))

	m.lastInserts = stats.TotalInserts
	m.lastSample = now
}

// Stop signals the loop and waits up to timeout for it to quiesce. Safe to
// call more than once.
func (m *Monitor) Stop(timeout time.Duration) {
	m.stopOnce.Do(func() { close(m.stop) })
	select {
	case <-m.done:
	case <-time.After(timeout):
		slog.Warn("Monitor did not stop within timeout")
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100)) / 100
}
