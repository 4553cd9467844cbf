// Package worker runs one logical thread of the load test: acquire a
// connection, cycle INSERT -> COMMIT -> SELECT -> VERIFY until the deadline,
// and replace the connection after a run of consecutive failures.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/bit2swaz/dbflood/internal/adapter"
	"github.com/bit2swaz/dbflood/internal/metrics"
	"github.com/bit2swaz/dbflood/internal/pool"
)

const (
	// payloadLength is the size of the random data column. Content is
	// irrelevant; only the bytes pushed per transaction matter.
	payloadLength = 500

	// maxConsecutiveErrors is how many failed transactions in a row a
	// worker tolerates before replacing its connection.
	maxConsecutiveErrors = 5

	// errorBackoff is the fixed sleep after a connection replacement or
	// acquisition failure.
	errorBackoff = 500 * time.Millisecond
)

const payloadCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Worker owns one transaction loop. It holds its connection across many
// cycles; the connection only goes back to the pool on failure bursts or at
// shutdown.
type Worker struct {
	id       int
	name     string
	adapter  adapter.Adapter
	registry *metrics.Registry
	deadline time.Time

	txCount int
}

func New(id int, ad adapter.Adapter, reg *metrics.Registry, deadline time.Time) *Worker {
	return &Worker{
		id:       id,
		name:     fmt.Sprintf("worker-%04d", id),
		adapter:  ad,
		registry: reg,
		deadline: deadline,
	}
}

// Run loops until the shared deadline or external cancellation, returning the
// number of successful transactions. The deadline is checked once per
// iteration, so a worker may overrun it by at most one in-flight transaction
// plus one backoff.
func (w *Worker) Run(ctx context.Context) int {
	slog.Info("Starting worker", "worker", w.name)
	metrics.IncWorker()
	defer metrics.DecWorker()

	var conn pool.Conn
	consecutiveErrors := 0

	for time.Now().Before(w.deadline) && ctx.Err() == nil {
		if conn == nil {
			c, err := w.adapter.GetConnection()
			if err != nil {
				slog.Error("Failed to acquire connection", "worker", w.name, "error", err)
				w.registry.IncError()
				time.Sleep(errorBackoff)
				continue
			}
			conn = c
			consecutiveErrors = 0
		}

		if w.executeTransaction(ctx, conn) {
			consecutiveErrors = 0
			w.txCount++
			continue
		}

		consecutiveErrors++
		if consecutiveErrors >= maxConsecutiveErrors {
			slog.Warn("Too many consecutive failures, recreating connection",
				"worker", w.name, "consecutive_errors", consecutiveErrors)
			w.adapter.ReleaseConnection(conn, true)
			conn = nil
			w.registry.IncConnectionRecreate()
			time.Sleep(errorBackoff)
		}
	}

	if conn != nil {
		w.adapter.ReleaseConnection(conn, false)
	}
	slog.Info("Worker completed", "worker", w.name, "transactions", w.txCount)
	return w.txCount
}

// executeTransaction runs one INSERT -> COMMIT -> SELECT -> VERIFY cycle.
// Driver errors roll back and count as hard errors; a committed row that
// cannot be re-read counts as a verification failure instead, and the
// connection is not assumed broken.
func (w *Worker) executeTransaction(ctx context.Context, conn pool.Conn) bool {
	payload := randomPayload(payloadLength)

	id, err := w.adapter.ExecuteInsert(ctx, conn, w.name, payload)
	if err != nil {
		return w.fail(conn, "insert", err)
	}
	w.registry.IncInsert()

	if err := w.adapter.Commit(conn); err != nil {
		return w.fail(conn, "commit", err)
	}

	row, err := w.adapter.ExecuteSelect(ctx, conn, id)
	if err != nil {
		return w.fail(conn, "select", err)
	}
	w.registry.IncSelect()

	if row == nil || row.ID != id {
		slog.Warn("Verification failed", "worker", w.name, "id", id)
		w.registry.IncVerificationFailure()
		return false
	}
	return true
}

// fail counts a hard error and rolls back best-effort; rollback failures are
// swallowed inside the adapter so they never mask the original error.
func (w *Worker) fail(conn pool.Conn, stage string, err error) bool {
	slog.Error("Transaction error", "worker", w.name, "stage", stage, "error", err)
	w.registry.IncError()
	w.adapter.Rollback(conn)
	return false
}

func randomPayload(length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = payloadCharset[rand.Intn(len(payloadCharset))]
	}
	return string(buf)
}
