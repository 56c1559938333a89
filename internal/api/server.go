package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/model"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/velocity"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, security domain.SecurityConfig, holder *model.Holder, engine *scoring.Engine, repo domain.Repository, cache domain.Cache, bus domain.EventBus, recorder *velocity.Recorder, version string) *Server {
	handler := NewHandler(holder, engine, repo, cache, bus, recorder, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Route("/api/v1", func(r chi.Router) {
		// Scoring
		r.Post("/score", handler.Score)
		r.Get("/scores/{id}", handler.GetScoreEvent)

		// Current model metadata
		r.Get("/model", handler.GetModel)

		// Administrative trigger, shared-secret gated
		r.Route("/model/admin", func(r chi.Router) {
			r.Use(APIKeyMiddleware(security.AdminAPIKey))
			r.Post("/update", handler.UpdateModel)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and drains the audit writer.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		s.handler.Close()
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.handler.Close()
	return err
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
