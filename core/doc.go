// Package core contains the business logic for the digests pipeline.
// It is designed to be framework-agnostic and can be used independently
// of any web framework or infrastructure concerns.
//
// The core package is organized into several sub-packages:
//
// - domain: Source, RawEntry, Article, StoryCluster, HealthRecord and the feed view types
// - registry: configured sources, their enabled flag and health
// - collector: concurrent feed fetching behind a cooldown gate
// - normalizer: raw entries to canonical articles, with per-entry salvage
// - enricher: keywords, summary, quality score, language and embedding
// - workers: bounded pool that runs enrichment off the collection path
// - cluster: assigns articles to story clusters within a time window
// - health: per-source consecutive-failure tracking
// - pipeline: orchestrates one run end to end and schedules runs
// - ranker, feed: personalised ranked feed and related articles
// - errors: custom error types for better error handling
// - interfaces: contracts for external dependencies (store, cache, HTTP, logger, AI)
//
// # Design Principles
//
// - No web framework dependencies
// - All external dependencies are injected via interfaces
// - Business logic is testable in isolation
// - Domain models are free from persistence concerns
//
// # Usage Example
//
//	reg := registry.New(store, logger)
//	reg.Seed(ctx, cfg.DomainSources())
//
//	orchestrator := pipeline.New(pipeline.Components{
//	    Registry:   reg,
//	    Collector:  collector.New(httpClient, collector.WithGate(collector.NewRunGate(5*time.Minute))),
//	    Normalizer: normalizer.New(),
//	    Enricher:   enricher.New(),
//	    Clusterer:  cluster.New(),
//	    Monitor:    health.NewMonitor(store, reg, logger),
//	    Store:      store,
//	})
//
//	summary, err := orchestrator.Run(ctx)
package core
