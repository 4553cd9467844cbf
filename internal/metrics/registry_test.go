package metrics

import (
	"sync"
	"testing"
)

func TestRegistrySnapshot(t *testing.T) {
	reg := NewRegistry()
	reg.IncInsert()
	reg.IncInsert()
	reg.IncInsert()
	reg.IncSelect()
	reg.IncSelect()
	reg.IncError()
	reg.IncVerificationFailure()
	reg.IncConnectionRecreate()

	stats := reg.Stats()
	if stats.TotalInserts != 3 {
		t.Errorf("Expected 3 inserts, got %d", stats.TotalInserts)
	}
	if stats.TotalSelects != 2 {
		t.Errorf("Expected 2 selects, got %d", stats.TotalSelects)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("Expected 1 error, got %d", stats.TotalErrors)
	}
	if stats.VerificationFailures != 1 {
		t.Errorf("Expected 1 verification failure, got %d", stats.VerificationFailures)
	}
	if stats.ConnectionRecreates != 1 {
		t.Errorf("Expected 1 connection recreate, got %d", stats.ConnectionRecreates)
	}
	if stats.ElapsedSeconds < 0 {
		t.Errorf("Elapsed seconds must not be negative, got %f", stats.ElapsedSeconds)
	}
	if stats.TPS < 0 {
		t.Errorf("TPS must not be negative, got %f", stats.TPS)
	}
}

func TestRegistryConcurrentIncrements(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				reg.IncInsert()
				reg.IncSelect()
			}
		}()
	}
	wg.Wait()

	stats := reg.Stats()
	if stats.TotalInserts != 1000 {
		t.Fatalf("Expected 1000 inserts, got %d", stats.TotalInserts)
	}
	if stats.TotalSelects != 1000 {
		t.Fatalf("Expected 1000 selects, got %d", stats.TotalSelects)
	}
	t.Log("Counters survived 10 concurrent writers without loss")
}

func TestRegistryCountersMonotonic(t *testing.T) {
	reg := NewRegistry()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			reg.IncInsert()
		}
	}()

	var last int64
	for {
		stats := reg.Stats()
		if stats.TotalInserts < last {
			t.Errorf("Counter went backwards: %d -> %d", last, stats.TotalInserts)
		}
		last = stats.TotalInserts
		select {
		case <-done:
			if got := reg.Stats().TotalInserts; got != 500 {
				t.Fatalf("Expected final count 500, got %d", got)
			}
			return
		default:
		}
	}
}
