// Package server exposes the collector, pipeline and analytics over
// HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/fundwatch/internal/collection"
	"github.com/aristath/fundwatch/internal/metrics"
	"github.com/aristath/fundwatch/internal/monitor"
	"github.com/aristath/fundwatch/internal/nav"
	"github.com/aristath/fundwatch/internal/pipeline"
	"github.com/aristath/fundwatch/internal/scoring"
	"github.com/aristath/fundwatch/internal/staging"
)

// Config holds server configuration
type Config struct {
	Port    int
	DevMode bool
	Log     zerolog.Logger

	Collector   *collection.FallbackCollector
	Pipeline    *pipeline.Pipeline
	StagingRepo *staging.Repository
	FundRepo    *nav.FundInfoRepository
	MetricsRepo *metrics.Repository
	ScoreRepo   *scoring.Repository
	Health      *monitor.HealthChecker
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    Config
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/estimate", func(r chi.Router) {
			r.Post("/batch", s.handleEstimateBatch)
			r.Post("/{code}", s.handleEstimate)
		})

		r.Route("/collector", func(r chi.Router) {
			r.Get("/status", s.handleCollectorStatus)
			r.Post("/reset", s.handleCollectorReset)
		})

		r.Route("/pipeline", func(r chi.Router) {
			r.Post("/run", s.handlePipelineRun)
			r.Get("/staging", s.handleStagingStats)
		})

		r.Route("/funds/{code}", func(r chi.Router) {
			r.Get("/", s.handleFundInfo)
			r.Get("/metrics", s.handleFundMetrics)
			r.Get("/score", s.handleFundScore)
		})

		r.Route("/scores", func(r chi.Router) {
			r.Get("/top", s.handleTopScores)
			r.Get("/distribution", s.handleScoreDistribution)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
