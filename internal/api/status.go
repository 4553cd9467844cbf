// Package api serves the observability HTTP surface: Prometheus metrics and
// a JSON status snapshot of the current run.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bit2swaz/dbflood/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	registry *metrics.Registry
	port     int
}

func NewServer(registry *metrics.Registry, port int) *Server {
	return &Server{
		registry: registry,
		port:     port,
	}
}

// Start blocks serving /metrics and /status; run it in its own goroutine.
// Failures are logged, not fatal: the load test keeps running without the
// HTTP surface.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("Starting status HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Status server failed", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.registry.Stats()); err != nil {
		slog.Error("Failed to encode status response", "error", err)
	}
}
