// Package api provides the HTTP API layer for the digests pipeline.
// It uses the Huma framework on a chi router for OpenAPI documentation,
// request validation and a clean handler interface.
//
// # Architecture
//
// - server.go: Huma API configuration, middleware and route registration
// - handlers/: collection trigger, source health, ranked feed, related articles, liveness
// - dto/: request parsing, response bodies and mappers from core types
// - middleware/: request logging with X-Request-ID, metrics, per-client rate limiting
//
// # Routes
//
//	POST /collections            run a collection now (429 during cooldown, 409 while running)
//	GET  /sources/health         every source with its health state
//	GET  /feed                   ranked feed; ?interests=business:0.8,tech&keywords=rates&page=1&per_page=10
//	GET  /articles/{id}/related  articles covering the same story
//	GET  /healthz                liveness
//	GET  /metrics                Prometheus exposition, when metrics are enabled
//
// The OpenAPI spec is served at /openapi.json and the interactive docs at /docs.
//
// # Usage Example
//
//	humaAPI, router := api.NewAPIWithMiddleware(api.APIConfig{
//	    Logger:         logger,
//	    Metrics:        mm,
//	    RateLimitRPS:   20,
//	    RateLimitBurst: 40,
//	})
//	api.RegisterRoutes(humaAPI, api.Services{Runner: orchestrator, Reporter: monitor, Feed: feedService})
//	http.ListenAndServe(":8000", router)
//
// # Error Handling
//
// Errors use the RFC 7807 problem format. Domain errors are mapped in one
// place: NotFound to 404, Validation to 400, cooldown to 429, a run already
// in progress to 409, AI capability failures to 503/429/400.
package api
