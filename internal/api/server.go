package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/larsfl/trailside/internal/api/handler"
	mw "github.com/larsfl/trailside/internal/api/middleware"
	"github.com/larsfl/trailside/internal/config"
	"github.com/larsfl/trailside/internal/core"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	pool     *pgxpool.Pool
	cfg      *config.Config
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, services *core.Services, cfg *config.Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
		pool:     pool,
		cfg:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth([]byte(s.cfg.SessionJWTSecret), s.cfg.SessionJWTIssuer))

		fitness := handler.NewFitness(s.services.Fitness)
		r.Post("/fitness/connect", fitness.Connect)
		r.Post("/fitness/callback", fitness.Callback)
		r.Get("/fitness/connection", fitness.Connection)
		r.Delete("/fitness/connection", fitness.Disconnect)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.Ping(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
