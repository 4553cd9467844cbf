// Package loadtest orchestrates a run: build the adapter's pool, launch the
// workers and the monitor against a shared deadline, join everyone, and
// produce the final report.
package loadtest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bit2swaz/dbflood/internal/adapter"
	"github.com/bit2swaz/dbflood/internal/metrics"
	"github.com/bit2swaz/dbflood/internal/monitor"
	"github.com/bit2swaz/dbflood/internal/worker"
	"github.com/google/uuid"
)

const monitorQuiesceTimeout = 5 * time.Second

// Report is the final artifact of a run, rendered by the CLI layer and
// returned for programmatic use.
type Report struct {
	RunID                 string
	DBType                string
	ThreadCount           int
	ConfiguredDuration    time.Duration
	Stats                 metrics.Stats
	TotalTransactions     int
	TransactionsPerThread float64
	SuccessRatePercent    float64
}

// Tester wires one adapter, one metrics registry, and one run configuration.
type Tester struct {
	cfg             adapter.Config
	adapter         adapter.Adapter
	registry        *metrics.Registry
	monitorInterval time.Duration
}

// New constructs the adapter for the configured database type. A construction
// failure here is fatal to the run; no workers are started.
func New(cfg adapter.Config, monitorInterval time.Duration) (*Tester, error) {
	ad, err := adapter.New(cfg.Type)
	if err != nil {
		return nil, err
	}
	if monitorInterval <= 0 {
		monitorInterval = 5 * time.Second
	}
	return &Tester{
		cfg:             cfg,
		adapter:         ad,
		registry:        metrics.NewRegistry(),
		monitorInterval: monitorInterval,
	}, nil
}

// Registry exposes the shared counters, e.g. for the status HTTP server.
func (t *Tester) Registry() *metrics.Registry {
	return t.registry
}

// Run executes the load test: threadCount workers plus one monitor racing the
// same wall-clock deadline. A single worker's panic is caught and logged and
// does not abort the others; its transaction contribution is simply zero.
func (t *Tester) Run(ctx context.Context, threadCount int, duration time.Duration) (*Report, error) {
	if threadCount < 1 {
		return nil, fmt.Errorf("thread count must be positive, got %d", threadCount)
	}
	runID := uuid.NewString()
	slog.Info("Starting load test",
		"run_id", runID,
		"db_type", t.cfg.Type,
		"threads", threadCount,
		"duration", duration)

	p, err := t.adapter.CreatePool(ctx, t.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer t.adapter.ClosePool()

	deadline := time.Now().Add(duration)

	mon := monitor.New(t.registry, p, t.monitorInterval, deadline)
	mon.Start()

	counts := make([]int, threadCount)
	var wg sync.WaitGroup
	for i := 0; i < threadCount; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Worker failed", "worker", n+1, "panic", r)
				}
			}()
			w := worker.New(n+1, t.adapter, t.registry, deadline)
			counts[n] = w.Run(ctx)
		}(i)
	}
	wg.Wait()

	mon.Stop(monitorQuiesceTimeout)

	total := 0
	for _, n := range counts {
		total += n
	}
	report := t.buildReport(runID, threadCount, duration, total)
	logReport(report)
	return report, nil
}

func (t *Tester) buildReport(runID string, threadCount int, duration time.Duration, totalTransactions int) *Report {
	stats := t.registry.Stats()
	successRate := 0.0
	if stats.TotalInserts > 0 {
		successRate = float64(stats.TotalInserts-stats.TotalErrors) / float64(stats.TotalInserts) * 100
	}
	return &Report{
		RunID:                 runID,
		DBType:                t.cfg.Type,
		ThreadCount:           threadCount,
		ConfiguredDuration:    duration,
		Stats:                 stats,
		TotalTransactions:     totalTransactions,
		TransactionsPerThread: float64(totalTransactions) / float64(threadCount),
		SuccessRatePercent:    successRate,
	}
}

func logReport(r *Report) {
	slog.Info("Load test completed", "run_id", r.RunID)
	slog.Info("Final statistics",
		"db_type", r.DBType,
		"threads", r.ThreadCount,
		"configured_duration", r.ConfiguredDuration,
		"actual_elapsed_seconds", r.Stats.ElapsedSeconds)
	slog.Info("Totals",
		"inserts", r.Stats.TotalInserts,
		"selects", r.Stats.TotalSelects,
		"errors", r.Stats.TotalErrors,
		"verification_failures", r.Stats.VerificationFailures,
		"connection_recreates", r.Stats.ConnectionRecreates)
	slog.Info("Throughput",
		"avg_tps", r.Stats.TPS,
		"transactions_per_thread", r.TransactionsPerThread,
		"success_rate_percent", r.SuccessRatePercent)
}
