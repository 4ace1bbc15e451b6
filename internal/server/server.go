// Package server is the HTTP surface: routing, middleware and handlers for
// the analysis API, history, feedback and the sign-in flow.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clarify/internal/analyse"
	"clarify/internal/auth"
	"clarify/internal/config"
	"clarify/internal/core"
	"clarify/internal/email"
	"clarify/internal/logger"
	"clarify/internal/metrics"
	"clarify/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyser runs one analysis request.
type Analyser interface {
	Analyse(ctx context.Context, req analyse.Request) (*core.AnalysedLink, error)
}

// Mailer sends verification codes.
type Mailer interface {
	Enabled() bool
	SendVerificationCode(ctx context.Context, to, code string) error
}

// Deps are the services the server routes to.
type Deps struct {
	Analyser   Analyser
	Store      *store.Store
	Auth       *auth.Service
	Email      Mailer
	QuotaLimit int
}

// Server wraps the router and the underlying http.Server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	cfg        config.Server
}

// New creates a Server with middleware and routes configured.
func New(cfg config.Server, deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		cfg:    cfg,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(metrics.Middleware)

	allowedOrigins := s.cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Device-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.userOrDevice)
			r.Post("/analyse", s.handleAnalyse)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/user-history", s.handleUserHistory)
			r.Delete("/user-history", s.handleClearUserHistory)
		})

		r.Get("/device-history", s.handleDeviceHistory)
		r.Delete("/device-history", s.handleClearDeviceHistory)

		r.Post("/feedback", s.handleFeedback)
		r.Post("/subscribe", s.handleSubscribe)

		r.Post("/auth/send-verification-code", s.handleSendVerificationCode)
		r.Post("/auth/verify-code", s.handleVerifyCode)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	logger.Info("starting server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var _ Mailer = (*email.Client)(nil)
