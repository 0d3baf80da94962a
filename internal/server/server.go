// Package server exposes the research orchestrator over HTTP and
// websocket transports.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/civiscope/civiscope-go/internal/metrics"
	"github.com/civiscope/civiscope-go/internal/service"
	"github.com/civiscope/civiscope-go/internal/stream"
)

// Server serves the REST API and per-task websocket streams.
type Server struct {
	orchestrator *service.Orchestrator
	hub          *stream.Hub
	metrics      *metrics.Collector
	logger       *slog.Logger
	http         *http.Server
}

// New creates a server listening on the given port.
func New(port int, orchestrator *service.Orchestrator, hub *stream.Hub, collector *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		orchestrator: orchestrator,
		hub:          hub,
		metrics:      collector,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/research/candidate/{name}", s.handleResearchCandidate)
	mux.HandleFunc("POST /api/v1/research/compare", s.handleResearchCompare)
	mux.HandleFunc("GET /api/v1/research/status/{task_id}", s.handleStatus)
	mux.HandleFunc("GET /api/v1/research/results/{task_id}", s.handleResults)
	mux.HandleFunc("DELETE /api/v1/research/{task_id}", s.handleCancel)
	mux.HandleFunc("GET /api/v1/research/active", s.handleActive)
	mux.HandleFunc("GET /api/v1/candidates", s.handleCandidates)
	mux.HandleFunc("GET /api/v1/candidates/{name}", s.handleCandidate)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /ws/research/{task_id}", s.handleWebsocket)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           LoggingMiddleware(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run starts the listener and blocks until the context is cancelled, then
// drains in-flight requests. Open websockets are closed by the drain.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting research server", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down research server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler returns the configured HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
