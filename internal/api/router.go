// Package api exposes the record cache, collection subscriptions and the
// image proxy over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/media"
	"hypeflow/internal/observability"
	"hypeflow/internal/pipeline"
	"hypeflow/internal/scheduler"
)

// Pipeline is the part of the pipeline the HTTP layer reads and drives.
type Pipeline interface {
	Records() []*domain.NFTRecord
	Subscriptions() []domain.CollectionSubscription
	Subscribe(ctx context.Context, address string) (bool, int, error)
	Stats() pipeline.Stats
}

// ImageProxy answers proxied image requests.
type ImageProxy interface {
	Plan(raw string) media.Plan
	Fetch(ctx context.Context, raw string) (*media.Image, error)
}

// Server holds the HTTP handlers.
type Server struct {
	pipeline  Pipeline
	proxy     ImageProxy
	logger    *zap.Logger
	triggers  func() []scheduler.RunInfo
	breakers  func() map[string]string
	sources   []string
	startedAt time.Time
}

// NewServer creates a Server.
func NewServer(p Pipeline, proxy ImageProxy, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pipeline:  p,
		proxy:     proxy,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// WithTriggerStatus sets the source of per-trigger run history for /status.
func (s *Server) WithTriggerStatus(fn func() []scheduler.RunInfo) *Server {
	s.triggers = fn
	return s
}

// WithBreakerStatus sets the source of per-adapter circuit breaker states
// for /status.
func (s *Server) WithBreakerStatus(fn func() map[string]string) *Server {
	s.breakers = fn
	return s
}

// WithSources lists the configured source adapters on /status.
func (s *Server) WithSources(names []string) *Server {
	s.sources = names
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", s.health)
	router.Get("/status", s.status)
	router.Method(http.MethodGet, "/metrics", observability.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/nfts", s.listNFTs)
		r.Get("/collections", s.listCollections)
		r.Post("/collections/subscribe", s.subscribe)
		r.Get("/proxy-image", s.proxyImage)
	})

	return router
}
