// Package infrastructure provides concrete implementations of the interfaces
// defined in the core package. These implementations handle external concerns
// such as storage, caching, HTTP communication, AI calls and logging.
//
// The infrastructure package is organized by technical concern:
//
// - store/memory: in-process record store
// - store/redis: go-redis record store with sorted-set time indexes
// - store/sqlite: squirrel-built queries over mattn/go-sqlite3
// - store/storetest: behaviour contract every store must pass
// - cache/memory: patrickmn/go-cache backed cache
// - cache/redis: Redis-based cache implementation
// - cache/sqlite: persistent cache with expiry purge
// - http/standard: HTTP client with retries and per-host rate limits
// - ai/openai: embeddings and annotations over an OpenAI-compatible API
// - vector/memory: brute-force cosine index for related articles
// - logger/logrus: logrus adapter with optional lumberjack rotation
//
// # Store Example
//
//	store, err := sqlite.NewStore("digests.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	articles, err := store.ListArticlesSince(ctx, time.Now().Add(-72*time.Hour))
//
// # Cache Example
//
//	cache := memory.NewMemoryCache()
//	err := cache.Set(ctx, "key", []byte("value"), 1*time.Hour)
//	value, err := cache.Get(ctx, "key")
//
// # HTTP Client
//
//	client := standard.NewStandardHTTPClient(15*time.Second,
//	    standard.WithUserAgent("DigestsPipeline/1.0"),
//	    standard.WithHostRateLimit(1, 2),
//	)
//	resp, err := client.Get(ctx, "https://example.com/rss")
//
// # Logger
//
//	logger := logrus.New(config.LogConfig{Level: "info", Format: "json"})
//	logger.Info("Processing request", map[string]interface{}{
//	    "source_id": "bbc-world",
//	})
package infrastructure
