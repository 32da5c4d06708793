// Package api exposes the read-only HTTP surface of the collector: quota
// standing, health, and Prometheus metrics. Collection itself is driven by
// the CLI and scheduler, never over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agromonitor/copernicus/pkg/quota"
)

// Config wires the HTTP server.
type Config struct {
	Gate   *quota.Gate
	Logger quota.Logger

	// MetricsHandler serves GET /metrics. Defaults to the Prometheus
	// default-registry handler.
	MetricsHandler http.Handler
}

// Server handles the quota inspection endpoints.
type Server struct {
	gate    *quota.Gate
	logger  quota.Logger
	metrics http.Handler
}

// NewServer validates the configuration and returns a server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Gate == nil {
		return nil, fmt.Errorf("api: gate is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = &quota.NoopLogger{}
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}
	return &Server{gate: cfg.Gate, logger: cfg.Logger, metrics: cfg.MetricsHandler}, nil
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/quota/status", s.handleStatus)
	r.Handle("/metrics", s.metrics)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports the month's budget standing. Accept: text/plain
// returns the human-readable banner instead of JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.gate.Status(r.Context())
	if err != nil {
		s.logger.Error("reading quota status", quota.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusServiceUnavailable, "quota store unavailable")
		return
	}

	if r.Header.Get("Accept") == "text/plain" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, status.Banner())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
