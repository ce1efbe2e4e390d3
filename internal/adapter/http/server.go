// Package http serves health, metrics and the latest run artifacts.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/adapter/filestore"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Artifacts reads the most recent run artifacts.
type Artifacts interface {
	LatestReadings() (domain.ReadingBatch, string, error)
	LatestAlerts() (domain.AlertBatch, string, error)
}

// Server exposes health, readiness, metrics and artifact endpoints.
type Server struct {
	httpServer *http.Server
	artifacts  Artifacts
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 latest-artifact routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, artifacts Artifacts, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		artifacts: artifacts,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/readings/latest", s.handleLatestReadings)
	mux.HandleFunc("GET /api/v1/alerts/latest", s.handleLatestAlerts)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleLatestReadings(w http.ResponseWriter, _ *http.Request) {
	batch, _, err := s.artifacts.LatestReadings()
	if err != nil {
		s.writeError(w, "readings", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, batch)
}

func (s *Server) handleLatestAlerts(w http.ResponseWriter, _ *http.Request) {
	batch, _, err := s.artifacts.LatestAlerts()
	if err != nil {
		s.writeError(w, "alerts", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, batch)
}

func (s *Server) writeError(w http.ResponseWriter, kind string, err error) {
	if errors.Is(err, filestore.ErrNotFound) {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no " + kind + " artifact yet"})
		return
	}
	s.logger.Error("load latest artifact failed", "kind", kind, "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load " + kind})
}
