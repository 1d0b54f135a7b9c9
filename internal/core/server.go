// Package core provides the API chassis for the umbrella service: a chi
// router with the cross-cutting middleware (request IDs, logging, panic
// recovery) applied before requests reach domain handlers, plus the shared
// response envelope.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"umbrella/internal/config"
)

// Pinger is the health-check contract for the storage backend, satisfied
// by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server encapsulates the router and cross-cutting dependencies, allowing
// for easy injection during testing.
type Server struct {
	Config *config.Config
	Logger *slog.Logger
	DB     Pinger

	router *chi.Mux
}

// NewServer initializes the router with the base middleware chain. The
// caller mounts domain routes afterwards; this separation lets tests
// customize route registration.
func NewServer(cfg *config.Config, db Pinger, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config: cfg,
		Logger: logger,
		DB:     db,
		router: chi.NewRouter(),
	}

	s.router.Use(s.Recoverer)
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(logger))
	s.router.Get("/healthz", s.handleHealth)

	return s, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness, including storage connectivity when a
// database is wired.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			s.Logger.ErrorContext(r.Context(), "health check: database unreachable", "error", err)
			status["status"] = "degraded"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	JSON(w, r, code, APIResponse{Data: status})
}
