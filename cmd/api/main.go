// ABOUTME: Main entry point for the digests pipeline server
// ABOUTME: Wires config, adapters, pipeline stages, scheduler and HTTP API, then serves until signalled

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"digests-pipeline/api"
	"digests-pipeline/core/cluster"
	"digests-pipeline/core/collector"
	"digests-pipeline/core/enricher"
	"digests-pipeline/core/feed"
	"digests-pipeline/core/health"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/core/normalizer"
	"digests-pipeline/core/pipeline"
	"digests-pipeline/core/ranker"
	"digests-pipeline/core/registry"
	"digests-pipeline/core/workers"
	"digests-pipeline/infrastructure/ai/openai"
	memcache "digests-pipeline/infrastructure/cache/memory"
	rediscache "digests-pipeline/infrastructure/cache/redis"
	sqlitecache "digests-pipeline/infrastructure/cache/sqlite"
	stdhttp "digests-pipeline/infrastructure/http/standard"
	logger "digests-pipeline/infrastructure/logger/logrus"
	memstore "digests-pipeline/infrastructure/store/memory"
	redisstore "digests-pipeline/infrastructure/store/redis"
	sqlitestore "digests-pipeline/infrastructure/store/sqlite"
	vectormem "digests-pipeline/infrastructure/vector/memory"
	"digests-pipeline/pkg/config"
	"digests-pipeline/pkg/featureflags"
	"digests-pipeline/pkg/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.FileEnv), "path to the YAML config file")
	runOnce := flag.Bool("run-once", false, "run one collection, print the summary and exit")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.New(cfg.Log)
	defer lg.Close()

	flags := featureflags.NewLayeredManager(staticFlags(cfg.Features), featureflags.NewEnvManager(""))
	ctx := featureflags.WithManager(context.Background(), flags)

	lg.Info("Starting digests pipeline", map[string]interface{}{
		"port":       cfg.Server.Port,
		"store_type": cfg.Store.Type,
		"cache_type": cfg.Cache.Type,
		"sources":    len(cfg.Sources),
		"flags":      flags.GetAllFlags(),
	})

	var mm *metrics.Manager
	if flags.IsEnabled(ctx, featureflags.MetricsEnabled) {
		mm = metrics.NewManager(metrics.WithNamespace("digests"))
	}

	var redisClient *redis.Client
	if cfg.Store.Type == "redis" || cfg.Cache.Type == "redis" {
		redisClient, err = connectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	cache, closeCache, err := newCache(cfg, redisClient, lg)
	if err != nil {
		log.Fatalf("Failed to open %s cache: %v", cfg.Cache.Type, err)
	}
	defer closeCache()

	store, closeStore, err := newStore(cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Type, err)
	}
	defer closeStore()

	httpClient := stdhttp.NewStandardHTTPClient(cfg.Collector.Timeout,
		stdhttp.WithMaxRetries(0),
		stdhttp.WithUserAgent(cfg.Collector.UserAgent),
		stdhttp.WithHostRateLimit(cfg.Collector.HostRPS, cfg.Collector.HostBurst),
	)
	deps := interfaces.Dependencies{
		Cache:      cache,
		HTTPClient: httpClient,
		Logger:     lg,
	}

	reg := registry.New(store, lg)
	seeded := reg.Seed(ctx, cfg.DomainSources())
	lg.Info("Source registry seeded", map[string]interface{}{
		"configured": len(cfg.Sources),
		"registered": seeded,
	})

	collectorOpts := []collector.Option{
		collector.WithWorkers(cfg.Collector.Workers),
		collector.WithTimeout(cfg.Collector.Timeout),
		collector.WithMaxBodyBytes(cfg.Collector.MaxBodyBytes),
		collector.WithGate(collector.NewRunGate(cfg.Collector.Cooldown)),
		collector.WithLogger(lg),
		collector.WithMetrics(mm),
	}
	if cache != nil && flags.IsEnabled(ctx, featureflags.ConditionalFetch) {
		collectorOpts = append(collectorOpts, collector.WithConditionalGET(cache))
	}

	enr := enricher.New(enricherOptions(ctx, cfg, flags, deps, mm)...)

	pool := workers.NewEnrichmentWorker(enr, workers.WorkerConfig{
		MaxWorkers:    cfg.Enrichment.Workers,
		QueueSize:     cfg.Enrichment.QueueSize,
		SubmitTimeout: cfg.Enrichment.AITimeout,
	})
	if err := pool.Start(); err != nil {
		log.Fatalf("Failed to start enrichment pool: %v", err)
	}
	defer pool.Stop()

	var index interfaces.VectorIndex
	if flags.IsEnabled(ctx, featureflags.Embeddings) && cfg.AI.Enabled() {
		index = vectormem.NewIndex()
	}

	monitor := health.NewMonitor(store, reg, lg, health.WithMetrics(mm))

	orchestrator := pipeline.New(pipeline.Components{
		Registry:   reg,
		Collector:  collector.New(httpClient, collectorOpts...),
		Normalizer: normalizer.New(normalizer.WithLogger(lg), normalizer.WithMetrics(mm)),
		Enricher:   enr,
		Pool:       pool,
		Clusterer: cluster.New(
			cluster.WithThreshold(cfg.Clustering.Threshold),
			cluster.WithWindow(cfg.Clustering.Window),
			cluster.WithLogger(lg),
			cluster.WithMetrics(mm),
		),
		Monitor: monitor,
		Store:   store,
		Index:   index,
	}, pipeline.WithLogger(lg), pipeline.WithMetrics(mm))

	if *runOnce {
		code := runSingle(ctx, orchestrator, os.Stdout)
		// os.Exit skips deferred calls
		_ = pool.Stop()
		closeStore()
		closeCache()
		lg.Close()
		os.Exit(code)
	}

	feedOpts := []feed.Option{
		feed.WithCandidateWindow(cfg.Ranking.CandidateWindow),
		feed.WithRanker(ranker.New(
			ranker.WithWeights(ranker.Weights{
				Recency:  cfg.Ranking.RecencyWeight,
				Quality:  cfg.Ranking.QualityWeight,
				Affinity: cfg.Ranking.AffinityWeight,
			}),
			ranker.WithHalfLife(cfg.Ranking.HalfLife),
			ranker.WithDiversityPenalty(cfg.Ranking.DiversityPenalty),
		)),
	}
	if index != nil {
		feedOpts = append(feedOpts, feed.WithVectorIndex(index))
	}
	feedService := feed.NewService(deps, store, feedOpts...)

	apiCfg := api.APIConfig{
		Logger:      lg,
		Metrics:     mm,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if flags.IsEnabled(ctx, featureflags.RateLimitEnabled) {
		apiCfg.RateLimitRPS = cfg.Server.RateLimitRPS
		apiCfg.RateLimitBurst = cfg.Server.RateLimitBurst
	}
	humaAPI, router := api.NewAPIWithMiddleware(apiCfg)
	api.RegisterRoutes(humaAPI, api.Services{
		Runner:   orchestrator,
		Reporter: monitor,
		Feed:     feedService,
	})

	var scheduler *pipeline.Scheduler
	if flags.IsEnabled(ctx, featureflags.Scheduler) {
		scheduler = pipeline.NewScheduler(orchestrator, cfg.Collector.Interval, lg)
		if err := scheduler.Start(ctx); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		lg.Info("Scheduler started", map[string]interface{}{
			"interval": cfg.Collector.Interval.String(),
			"cooldown": cfg.Collector.Cooldown.String(),
		})
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("HTTP server starting", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error("HTTP server error", map[string]interface{}{
				"error": err.Error(),
			})
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("Shutting down server...", nil)

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	lg.Info("Server stopped", nil)
}

func staticFlags(features map[string]bool) *featureflags.StaticManager {
	flags := make(map[featureflags.FeatureFlag]bool, len(features))
	for name, on := range features {
		flags[featureflags.FeatureFlag(name)] = on
	}
	return featureflags.NewStaticManager(flags)
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func newCache(cfg *config.Config, client *redis.Client, lg interfaces.Logger) (interfaces.Cache, func(), error) {
	switch cfg.Cache.Type {
	case "redis":
		lg.Info("Using Redis cache", map[string]interface{}{
			"address": cfg.Redis.Address,
		})
		return rediscache.NewFromClient(client, cfg.Redis.KeyPrefix+"cache:"), func() {}, nil
	case "sqlite":
		lg.Info("Using SQLite cache", map[string]interface{}{
			"path": cfg.Cache.SQLitePath,
		})
		c, err := sqlitecache.NewSQLiteCache(cfg.Cache.SQLitePath, sqlitecache.WithLogger(lg))
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	case "none":
		lg.Info("Cache disabled", nil)
		return nil, func() {}, nil
	default:
		lg.Info("Using memory cache", nil)
		return memcache.NewMemoryCache(), func() {}, nil
	}
}

func newStore(cfg *config.Config, client *redis.Client) (interfaces.Store, func(), error) {
	switch cfg.Store.Type {
	case "redis":
		return redisstore.NewStore(client, cfg.Redis.KeyPrefix), func() {}, nil
	case "sqlite":
		s, err := sqlitestore.NewStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return memstore.NewStore(), func() {}, nil
	}
}

func enricherOptions(ctx context.Context, cfg *config.Config, flags featureflags.Manager, deps interfaces.Dependencies, mm *metrics.Manager) []enricher.Option {
	opts := []enricher.Option{
		enricher.WithMaxKeywords(cfg.Enrichment.MaxKeywords),
		enricher.WithDetector(enricher.NewLinguaDetector()),
		enricher.WithLogger(deps.Logger),
		enricher.WithMetrics(mm),
	}
	if deps.Cache != nil {
		opts = append(opts, enricher.WithCache(deps.Cache, cfg.Cache.TTL))
	}
	if !cfg.AI.Enabled() {
		return opts
	}

	client := openai.NewClient(deps.HTTPClient, cfg.AI)
	if flags.IsEnabled(ctx, featureflags.AIEnrichment) {
		opts = append(opts, enricher.WithAnnotator(client, cfg.Enrichment.AITimeout))
	}
	if flags.IsEnabled(ctx, featureflags.Embeddings) {
		opts = append(opts, enricher.WithEmbedder(client, cfg.Enrichment.AITimeout))
	}
	return opts
}

// runSingle runs one collection and writes its summary as JSON; the result is the exit code
func runSingle(ctx context.Context, runner pipeline.Runner, out io.Writer) int {
	summary, err := runner.Run(ctx)
	if summary != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "collection failed: %v\n", err)
		return 1
	}
	return 0
}
