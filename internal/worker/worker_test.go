package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bit2swaz/dbflood/internal/adapter"
	"github.com/bit2swaz/dbflood/internal/metrics"
	"github.com/bit2swaz/dbflood/internal/pool"
)

type fakeConn struct{}

func (fakeConn) Close() error { return nil }

// fakeAdapter scripts adapter behavior per call so failure sequences are
// deterministic.
type fakeAdapter struct {
	mu          sync.Mutex
	nextID      int64
	insertCalls int
	insertFn    func(call int) (int64, error)
	selectFn    func(id int64) (*adapter.Row, error)
	commitErr   error
	acquireErr  error
	acquires    int
	releases    []bool
	rollbacks   int
}

func (f *fakeAdapter) CreatePool(ctx context.Context, cfg adapter.Config) (*pool.Pool, error) {
	return nil, nil
}

func (f *fakeAdapter) GetConnection() (pool.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return fakeConn{}, nil
}

func (f *fakeAdapter) ReleaseConnection(conn pool.Conn, isError bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, isError)
}

func (f *fakeAdapter) ClosePool() {}

func (f *fakeAdapter) ExecuteInsert(ctx context.Context, conn pool.Conn, workerID, payload string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertFn != nil {
		return f.insertFn(f.insertCalls)
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeAdapter) ExecuteSelect(ctx context.Context, conn pool.Conn, id int64) (*adapter.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectFn != nil {
		return f.selectFn(id)
	}
	return &adapter.Row{ID: id, WorkerID: "worker-0001"}, nil
}

func (f *fakeAdapter) Commit(conn pool.Conn) error { return f.commitErr }

func (f *fakeAdapter) Rollback(conn pool.Conn) {
	f.mu.Lock()
	f.rollbacks++
	f.mu.Unlock()
}

func (f *fakeAdapter) DDL() string { return "" }

func (f *fakeAdapter) snapshot() (rollbacks int, releases []bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rollbacks, append([]bool(nil), f.releases...)
}

func TestTransactionCycleSuccess(t *testing.T) {
	fa := &fakeAdapter{}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(time.Hour))

	if !w.executeTransaction(context.Background(), fakeConn{}) {
		t.Fatal("Expected transaction to succeed")
	}
	stats := reg.Stats()
	if stats.TotalInserts != 1 || stats.TotalSelects != 1 {
		t.Fatalf("Expected 1 insert and 1 select, got %d/%d", stats.TotalInserts, stats.TotalSelects)
	}
	if stats.TotalErrors != 0 || stats.VerificationFailures != 0 {
		t.Fatalf("Expected clean run, got errors=%d verification_failures=%d",
			stats.TotalErrors, stats.VerificationFailures)
	}
}

func TestVerificationFailureOnMissingRow(t *testing.T) {
	fa := &fakeAdapter{
		selectFn: func(id int64) (*adapter.Row, error) { return nil, nil },
	}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(time.Hour))

	if w.executeTransaction(context.Background(), fakeConn{}) {
		t.Fatal("Expected transaction to fail verification")
	}
	stats := reg.Stats()
	if stats.VerificationFailures != 1 {
		t.Errorf("Expected 1 verification failure, got %d", stats.VerificationFailures)
	}
	if stats.TotalErrors != 0 {
		t.Errorf("Verification failure must not count as a hard error, got %d", stats.TotalErrors)
	}
	if stats.TotalInserts != 1 || stats.TotalSelects != 1 {
		t.Errorf("Insert and select still count, got %d/%d", stats.TotalInserts, stats.TotalSelects)
	}
	rollbacks, _ := fa.snapshot()
	if rollbacks != 0 {
		t.Errorf("Verification failure must not roll back, got %d rollbacks", rollbacks)
	}
	t.Log("Committed-but-unreadable row counted as verification failure only")
}

func TestVerificationFailureOnMismatchedID(t *testing.T) {
	fa := &fakeAdapter{
		selectFn: func(id int64) (*adapter.Row, error) {
			return &adapter.Row{ID: id + 1}, nil
		},
	}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(time.Hour))

	if w.executeTransaction(context.Background(), fakeConn{}) {
		t.Fatal("Expected transaction to fail verification")
	}
	stats := reg.Stats()
	if stats.VerificationFailures != 1 || stats.TotalErrors != 0 {
		t.Fatalf("Expected verification_failures=1 errors=0, got %d/%d",
			stats.VerificationFailures, stats.TotalErrors)
	}
}

func TestInsertErrorCountsAndRollsBack(t *testing.T) {
	fa := &fakeAdapter{
		insertFn: func(call int) (int64, error) { return 0, errors.New("table full") },
	}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(time.Hour))

	if w.executeTransaction(context.Background(), fakeConn{}) {
		t.Fatal("Expected transaction to fail")
	}
	stats := reg.Stats()
	if stats.TotalErrors != 1 {
		t.Errorf("Expected 1 hard error, got %d", stats.TotalErrors)
	}
	if stats.TotalInserts != 0 {
		t.Errorf("Failed insert must not count, got %d", stats.TotalInserts)
	}
	rollbacks, _ := fa.snapshot()
	if rollbacks != 1 {
		t.Errorf("Expected 1 rollback, got %d", rollbacks)
	}
}

func TestCommitErrorCountsAsHardError(t *testing.T) {
	fa := &fakeAdapter{commitErr: errors.New("disk I/O error")}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(time.Hour))

	if w.executeTransaction(context.Background(), fakeConn{}) {
		t.Fatal("Expected transaction to fail")
	}
	stats := reg.Stats()
	if stats.TotalErrors != 1 {
		t.Errorf("Expected 1 hard error, got %d", stats.TotalErrors)
	}
	if stats.TotalInserts != 1 {
		t.Errorf("Insert preceded the commit failure, expected it counted, got %d", stats.TotalInserts)
	}
	if stats.TotalSelects != 0 {
		t.Errorf("Select must not run after a failed commit, got %d", stats.TotalSelects)
	}
}

func TestConsecutiveFailuresRecreateConnection(t *testing.T) {
	fa := &fakeAdapter{
		insertFn: func(call int) (int64, error) { return 0, errors.New("connection gone") },
	}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(300*time.Millisecond))

	got := w.Run(context.Background())
	if got != 0 {
		t.Fatalf("Expected 0 successful transactions, got %d", got)
	}
	stats := reg.Stats()
	if stats.TotalErrors != 5 {
		t.Errorf("Expected exactly 5 errors before recreation, got %d", stats.TotalErrors)
	}
	if stats.ConnectionRecreates != 1 {
		t.Errorf("Expected exactly 1 connection recreation, got %d", stats.ConnectionRecreates)
	}
	_, releases := fa.snapshot()
	if len(releases) != 1 || !releases[0] {
		t.Errorf("Expected one error-path release, got %v", releases)
	}
	t.Log("Failure threshold replaced the connection exactly once")
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	fa := &fakeAdapter{
		insertFn: func(call int) (int64, error) {
			if call%5 == 0 {
				return int64(call), nil
			}
			return 0, errors.New("transient failure")
		},
	}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(200*time.Millisecond))

	got := w.Run(context.Background())
	stats := reg.Stats()
	if stats.ConnectionRecreates != 0 {
		t.Errorf("Interleaved successes must reset the streak, got %d recreations",
			stats.ConnectionRecreates)
	}
	if got == 0 || stats.TotalInserts == 0 {
		t.Error("Expected some successful transactions")
	}
	if stats.TotalErrors == 0 {
		t.Error("Expected some failed transactions")
	}
}

func TestAcquireFailureBacksOff(t *testing.T) {
	fa := &fakeAdapter{acquireErr: errors.New("pool exhausted")}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(200*time.Millisecond))

	got := w.Run(context.Background())
	if got != 0 {
		t.Fatalf("Expected 0 transactions, got %d", got)
	}
	stats := reg.Stats()
	if stats.TotalErrors != 1 {
		t.Errorf("Expected 1 acquisition error before the deadline, got %d", stats.TotalErrors)
	}
	if stats.ConnectionRecreates != 0 {
		t.Errorf("Acquisition failure is not a recreation, got %d", stats.ConnectionRecreates)
	}
}

func TestRunReleasesConnectionAtDeadline(t *testing.T) {
	fa := &fakeAdapter{}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(50*time.Millisecond))

	got := w.Run(context.Background())
	if got == 0 {
		t.Fatal("Expected at least one successful transaction")
	}
	_, releases := fa.snapshot()
	if len(releases) != 1 || releases[0] {
		t.Fatalf("Expected one clean release at shutdown, got %v", releases)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	fa := &fakeAdapter{}
	reg := metrics.NewRegistry()
	w := New(1, fa, reg, time.Now().Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not stop after cancellation")
	}
}
