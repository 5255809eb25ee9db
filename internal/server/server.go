// Package server exposes the orchestrator trigger and the advisory
// quality endpoint over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pressroom/internal/config"
	"pressroom/internal/logger"
	"pressroom/internal/orchestrator"
	"pressroom/internal/pipeline"
)

// BatchRunner executes one scheduled orchestrator pass.
type BatchRunner interface {
	RunScheduled(ctx context.Context) (*orchestrator.BatchReport, error)
}

// Server is the HTTP surface of the pipeline service.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	runner     BatchRunner
	store      pipeline.TopicStore
	config     config.Server
	log        *slog.Logger
}

// New creates the HTTP server.
func New(runner BatchRunner, store pipeline.TopicStore, cfg config.Server) *Server {
	s := &Server{
		router: chi.NewRouter(),
		runner: runner,
		store:  store,
		config: cfg,
		log:    logger.Get(),
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
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.With(s.requireCronToken).Post("/pipeline/run", s.handleRunPipeline)
		r.Get("/topics/{id}/quality", s.handleTopicQuality)
	})
}

// Start begins serving; it blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests. The grace period must cover a
// running batch, which the write timeout already bounds.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
