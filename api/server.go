// ABOUTME: Huma API server configuration and setup
// ABOUTME: Provides OpenAPI documentation, middleware, the metrics endpoint and route registration

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"digests-pipeline/api/handlers"
	"digests-pipeline/api/middleware"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/core/pipeline"
	"digests-pipeline/pkg/metrics"
)

// APIConfig holds configuration for the API
type APIConfig struct {
	Logger interfaces.Logger

	// Metrics enables request counting and the /metrics endpoint when set
	Metrics *metrics.Manager

	// RateLimitRPS of zero disables per-client rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// CORSOrigins defaults to any origin when empty
	CORSOrigins []string
}

// Services are the core components the handlers call
type Services struct {
	Runner   pipeline.Runner
	Reporter handlers.HealthReporter
	Feed     handlers.FeedService
}

// NewAPI creates a Huma API with default middleware
func NewAPI() (huma.API, chi.Router) {
	return NewAPIWithMiddleware(APIConfig{})
}

// NewAPIWithMiddleware creates a new API with middleware configured
func NewAPIWithMiddleware(cfg APIConfig) (huma.API, chi.Router) {
	router := chi.NewRouter()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		router.Use(middleware.RequestLoggingMiddleware(cfg.Logger))
	}
	if cfg.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(cfg.Metrics))
	}
	if cfg.RateLimitRPS > 0 {
		router.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}

	// chi requires every middleware before the first route
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}

	config := huma.DefaultConfig("Digests Pipeline API", "1.0.0")
	config.Info.Description = "Collects news feeds into enriched, clustered articles and serves a ranked feed"

	api := humachi.New(router, config)
	handlers.RegisterHealthz(api)

	return api, router
}

// RegisterRoutes wires every handler onto api
func RegisterRoutes(api huma.API, svc Services) {
	handlers.NewCollectionHandler(svc.Runner, svc.Reporter).RegisterRoutes(api)
	handlers.NewFeedHandler(svc.Feed).RegisterRoutes(api)
}
