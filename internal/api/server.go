// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tikra-app/tikra/internal/auth"
	"github.com/tikra-app/tikra/internal/core/entry"
	"github.com/tikra-app/tikra/internal/core/project"
	"github.com/tikra-app/tikra/internal/core/timer"
	"github.com/tikra-app/tikra/internal/platform/config"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/middleware"
	"github.com/tikra-app/tikra/internal/platform/sec"
	"github.com/tikra-app/tikra/internal/realtime"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles registration, login, token rotation, and preferences.
	Auth *auth.Handler

	// Timer handles the per-user timer state machine.
	Timer *timer.Handler

	// Entry handles time-entry CRUD, bulk operations, and the sync surface.
	Entry *entry.Handler

	// Project handles the project catalogue.
	Project *project.Handler

	// Channel terminates WebSocket subscriptions.
	Channel *realtime.WSHandler

	// Poll is the HTTP fallback for blocked WebSockets.
	Poll *realtime.PollManager
}

// Limiters carries the two per-IP rate-limit windows: a strict one for the
// credential endpoints and a general one for everything else under /api.
type Limiters struct {
	Auth middleware.Limiter
	API  middleware.Limiter
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(
	cfg *config.Config,
	log *slog.Logger,
	verifier middleware.TokenVerifier,
	sessions middleware.SessionValidator,
	limiters Limiters,
	h Handlers,
) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.SecurityHeaders(cfg))
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.Authenticate(verifier, sessions))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RateLimit(limiters.API, "api"))

		// Request-scoped endpoints run under the global deadline. The socket
		// is excluded: its lifetime is governed by the channel idle and
		// heartbeat timeouts, not the request timeout.
		api.Group(func(timed chi.Router) {
			timed.Use(chimw.Timeout(constants.GlobalRequestTimeout))

			timed.Mount("/auth", h.Auth.Routes(middleware.RateLimit(limiters.Auth, "auth")))

			// Authenticated domain surface
			timed.Group(func(protected chi.Router) {
				protected.Use(middleware.RequireAuth)

				protected.Route("/timers", h.Timer.RegisterRoutes)
				protected.Route("/entries", h.Entry.RegisterRoutes)
				protected.Route("/projects", h.Project.RegisterRoutes)

				// Polling fallback for blocked WebSockets.
				protected.Get("/poll", h.Poll.Poll)
				protected.Post("/send", h.Poll.Send)
			})

			// Admin-only surface
			timed.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRole(sec.RoleAdmin))
				admin.Route("/admin", h.Timer.RegisterAdminRoutes)
			})
		})

		// Realtime channel
		api.Group(func(channel chi.Router) {
			channel.Use(middleware.RequireAuth)
			channel.Handle("/socket", h.Channel)
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              cfg.BindAddr,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
