package loadtest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bit2swaz/dbflood/internal/adapter"
	"github.com/bit2swaz/dbflood/internal/metrics"
	"github.com/bit2swaz/dbflood/internal/pool"
)

type fakeConn struct{}

func (fakeConn) Close() error { return nil }

// fakeAdapter backs the orchestration tests with an in-memory database that
// always echoes the inserted row, layered over a real connection pool.
type fakeAdapter struct {
	pool       *pool.Pool
	nextID     atomic.Int64
	created    atomic.Int64
	panicFirst bool
	panicked   atomic.Bool
}

func (f *fakeAdapter) CreatePool(ctx context.Context, cfg adapter.Config) (*pool.Pool, error) {
	f.pool = pool.New(func() (pool.Conn, error) {
		f.created.Add(1)
		return fakeConn{}, nil
	}, cfg.MinPoolSize, cfg.MaxPoolSize)
	return f.pool, nil
}

func (f *fakeAdapter) GetConnection() (pool.Conn, error) {
	return f.pool.Acquire(2 * time.Second)
}

func (f *fakeAdapter) ReleaseConnection(conn pool.Conn, isError bool) {
	f.pool.Release(conn)
}

func (f *fakeAdapter) ClosePool() {
	f.pool.CloseAll()
}

func (f *fakeAdapter) ExecuteInsert(ctx context.Context, conn pool.Conn, workerID, payload string) (int64, error) {
	if f.panicFirst && f.panicked.CompareAndSwap(false, true) {
		panic("injected worker failure")
	}
	return f.nextID.Add(1), nil
}

func (f *fakeAdapter) ExecuteSelect(ctx context.Context, conn pool.Conn, id int64) (*adapter.Row, error) {
	return &adapter.Row{ID: id}, nil
}

func (f *fakeAdapter) Commit(conn pool.Conn) error { return nil }

func (f *fakeAdapter) Rollback(conn pool.Conn) {}

func (f *fakeAdapter) DDL() string { return "" }

func newFakeTester(fa *fakeAdapter) *Tester {
	return &Tester{
		cfg: adapter.Config{
			Type:        "fake",
			MinPoolSize: 2,
			MaxPoolSize: 2,
		},
		adapter:         fa,
		registry:        metrics.NewRegistry(),
		monitorInterval: 100 * time.Millisecond,
	}
}

func TestRunSustainedLoad(t *testing.T) {
	fa := &fakeAdapter{}
	tester := newFakeTester(fa)

	report, err := tester.Run(context.Background(), 2, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Stats.TotalInserts == 0 {
		t.Fatal("Expected some transactions to complete")
	}
	if report.Stats.TotalInserts != report.Stats.TotalSelects {
		t.Errorf("Every committed insert must be re-read: inserts=%d selects=%d",
			report.Stats.TotalInserts, report.Stats.TotalSelects)
	}
	if report.Stats.TotalErrors != 0 || report.Stats.VerificationFailures != 0 {
		t.Errorf("Expected clean run, got errors=%d verification_failures=%d",
			report.Stats.TotalErrors, report.Stats.VerificationFailures)
	}
	if int64(report.TotalTransactions) != report.Stats.TotalInserts {
		t.Errorf("Transaction sum %d disagrees with insert count %d",
			report.TotalTransactions, report.Stats.TotalInserts)
	}
	if report.SuccessRatePercent != 100 {
		t.Errorf("Expected 100%% success rate, got %f", report.SuccessRatePercent)
	}
	if report.ThreadCount != 2 {
		t.Errorf("Expected thread count 2, got %d", report.ThreadCount)
	}
	if want := float64(report.TotalTransactions) / 2; report.TransactionsPerThread != want {
		t.Errorf("Expected %f transactions per thread, got %f", want, report.TransactionsPerThread)
	}
	if report.RunID == "" {
		t.Error("Expected a run identifier")
	}
	if fa.created.Load() > 2 {
		t.Errorf("Pool created %d connections, max is 2", fa.created.Load())
	}
	t.Log("Two workers sustained load for the configured duration")
}

func TestRunSurvivesWorkerPanic(t *testing.T) {
	fa := &fakeAdapter{panicFirst: true}
	tester := newFakeTester(fa)

	report, err := tester.Run(context.Background(), 2, 400*time.Millisecond)
	if err != nil {
		t.Fatalf("Run failed despite panic isolation: %v", err)
	}
	if report.TotalTransactions == 0 {
		t.Fatal("Surviving worker should have kept transacting")
	}
	if report.Stats.TotalErrors != 0 {
		t.Errorf("A panic is not a counted transaction error, got %d", report.Stats.TotalErrors)
	}
	t.Log("One worker panicked, the run still completed with a report")
}

func TestRunRejectsNonPositiveThreadCount(t *testing.T) {
	tester := newFakeTester(&fakeAdapter{})
	if _, err := tester.Run(context.Background(), 0, time.Second); err == nil {
		t.Fatal("Expected error for zero thread count")
	}
}

func TestNewRejectsUnsupportedType(t *testing.T) {
	if _, err := New(adapter.Config{Type: "oracle"}, 0); err == nil {
		t.Fatal("Expected error for unsupported database type")
	}
}

func TestNewDefaultsMonitorInterval(t *testing.T) {
	tester, err := New(adapter.Config{Type: "sqlite"}, 0)
	if err != nil {
		t.Fatalf("Failed to create tester: %v", err)
	}
	if tester.monitorInterval != 5*time.Second {
		t.Errorf("Expected default monitor interval 5s, got %v", tester.monitorInterval)
	}
	if tester.Registry() == nil {
		t.Error("Expected a registry")
	}
}
