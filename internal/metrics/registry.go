// Package metrics holds the shared performance counters for a load-test run
// and their Prometheus mirrors.
package metrics

import (
	"sync"
	"time"
)

// Registry is the thread-safe set of counters shared by every worker and the
// monitor. All fields are guarded by one lock so snapshots stay internally
// coherent; increments are O(1) and far cheaper than a database round-trip,
// so the coarse lock is not a bottleneck.
type Registry struct {
	mu                   sync.Mutex
	totalInserts         int64
	totalSelects         int64
	totalErrors          int64
	verificationFailures int64
	connectionRecreates  int64
	start                time.Time
}

// Stats is an internally consistent snapshot of every counter plus derived
// throughput.
type Stats struct {
	TotalInserts         int64   `json:"total_inserts"`
	TotalSelects         int64   `json:"total_selects"`
	TotalErrors          int64   `json:"total_errors"`
	VerificationFailures int64   `json:"verification_failures"`
	ConnectionRecreates  int64   `json:"connection_recreates"`
	ElapsedSeconds       float64 `json:"elapsed_seconds"`
	TPS                  float64 `json:"tps"`
}

// NewRegistry creates a registry with its start time fixed at now.
func NewRegistry() *Registry {
	return &Registry{start: time.Now()}
}

func (r *Registry) IncInsert() {
	r.mu.Lock()
	r.totalInserts++
	r.mu.Unlock()
	IncTransaction("insert")
}

func (r *Registry) IncSelect() {
	r.mu.Lock()
	r.totalSelects++
	r.mu.Unlock()
	IncTransaction("select")
}

func (r *Registry) IncError() {
	r.mu.Lock()
	r.totalErrors++
	r.mu.Unlock()
	IncTransaction("error")
}

func (r *Registry) IncVerificationFailure() {
	r.mu.Lock()
	r.verificationFailures++
	r.mu.Unlock()
	IncTransaction("verification_failure")
}

func (r *Registry) IncConnectionRecreate() {
	r.mu.Lock()
	r.connectionRecreates++
	r.mu.Unlock()
	IncTransaction("connection_recreate")
}

// Stats reads every counter under a single lock acquisition and derives
// elapsed time and average TPS (inserts per elapsed second, 0 when no time
// has passed).
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	elapsed := time.Since(r.start).Seconds()
	tps := 0.0
	if elapsed > 0 {
		tps = float64(r.totalInserts) / elapsed
	}
	return Stats{
		TotalInserts:         r.totalInserts,
		TotalSelects:         r.totalSelects,
		TotalErrors:          r.totalErrors,
		VerificationFailures: r.verificationFailures,
		ConnectionRecreates:  r.connectionRecreates,
		ElapsedSeconds:       elapsed,
		TPS:                  tps,
	}
}
