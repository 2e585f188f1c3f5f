// Package api exposes the research engine over HTTP: submit a query, poll
// its status, and fetch the assembled result.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rankscout/rankscout/internal/metrics"
	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/internal/workflow"
)

// Server is the research HTTP API.
type Server struct {
	runner         *workflow.Runner
	logger         *slog.Logger
	metricsEnabled bool
}

// NewServer creates the API server around a workflow runner. A nil logger
// falls back to slog.Default().
func NewServer(runner *workflow.Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/research", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Get("/{id}", s.handleStatus)
		r.Get("/{id}/result", s.handleResult)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	return r
}

// startRequest is the POST /api/research body.
type startRequest struct {
	Type       research.QueryType `json:"type"`
	Parameters json.RawMessage    `json:"parameters"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	id, err := s.runner.Start(r.Context(), req.Type, req.Parameters)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": string(research.StatusPending),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q, err := s.runner.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr *research.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, research.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case research.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg},
	})
}
