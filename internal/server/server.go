// Package server exposes the watch-mode status API: liveness and
// readiness probes, Prometheus metrics, and recent run summaries.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prodline/mdi/internal/config"
	"github.com/prodline/mdi/internal/etl"
)

// Pinger reports backend connectivity for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the watch-mode status HTTP server.
type Server struct {
	router  *chi.Mux
	http    *http.Server
	tracker *etl.Tracker
	db      Pinger
	timeout time.Duration
}

// New creates a Server. db may be nil when running without a database;
// readiness then reports degraded but alive.
func New(cfg config.Server, tracker *etl.Tracker, db Pinger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		tracker: tracker,
		db:      db,
		timeout: cfg.ShutdownTimeout,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
	})

	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "not configured"})
		return
	}
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}

// runView is the JSON shape of one run summary.
type runView struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	Valid     int       `json:"valid"`
	Invalid   int       `json:"invalid"`
	Errors    int       `json:"errors"`
	Inserted  int       `json:"inserted"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

func viewOf(r etl.Result) runView {
	return runView{
		ID:        r.RunID.String(),
		File:      r.File,
		Status:    r.Status,
		Total:     r.Summary.Total,
		Valid:     r.Summary.Valid,
		Invalid:   r.Summary.Invalid,
		Errors:    r.Summary.ErrorCount,
		Inserted:  r.Inserted,
		StartedAt: r.StartedAt,
		Duration:  r.Duration.String(),
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	recent := s.tracker.Recent()
	views := make([]runView, len(recent))
	for i, run := range recent {
		views[i] = viewOf(run)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}
	run, ok := s.tracker.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(run))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
