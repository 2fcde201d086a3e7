// ABOUTME: Configuration structures for the API server, pipeline stages and adapters
// ABOUTME: Defaults honour the legacy PORT, REFRESH_TIMER and REDIS_* environment variables

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"digests-pipeline/core/domain"
)

// Config holds all application configuration
type Config struct {
	// Server contains HTTP server configuration
	Server ServerConfig `koanf:"server"`

	// Log configures the logrus adapter
	Log LogConfig `koanf:"log"`

	// Store selects the durable record store
	Store StoreConfig `koanf:"store"`

	// Cache selects the AI result and validator cache
	Cache CacheConfig `koanf:"cache"`

	// Redis is shared by the redis store and cache
	Redis RedisConfig `koanf:"redis"`

	Collector  CollectorConfig  `koanf:"collector"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Clustering ClusteringConfig `koanf:"clustering"`
	Ranking    RankingConfig    `koanf:"ranking"`

	// AI configures the optional OpenAI-compatible capability
	AI AIConfig `koanf:"ai"`

	// Features seeds the static feature flag manager
	Features map[string]bool `koanf:"features"`

	// Sources seeds the source registry at startup
	Sources []SourceConfig `koanf:"sources"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	// Port is the HTTP server port
	Port string `koanf:"port"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// RateLimitRPS and RateLimitBurst bound requests per client IP
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// CORSOrigins lists allowed origins; empty allows any
	CORSOrigins []string `koanf:"cors_origins"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `koanf:"level"`

	// Format is json or text
	Format string `koanf:"format"`

	// File enables rotating file output when set
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// StoreConfig selects the record store backend
type StoreConfig struct {
	// Type is memory, redis or sqlite
	Type string `koanf:"type"`

	// SQLitePath is the database file for the sqlite store
	SQLitePath string `koanf:"sqlite_path"`
}

// CacheConfig holds cache backend configuration
type CacheConfig struct {
	// Type specifies the cache backend (redis/memory/sqlite/none)
	Type string `koanf:"type"`

	// TTL applies to cached AI results
	TTL time.Duration `koanf:"ttl"`

	// SQLitePath is the database file for the sqlite cache
	SQLitePath string `koanf:"sqlite_path"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Address is the Redis server address
	Address string `koanf:"address"`

	// Password is the Redis authentication password
	Password string `koanf:"password"`

	// DB is the Redis database number
	DB int `koanf:"db"`

	// KeyPrefix namespaces every key this process writes
	KeyPrefix string `koanf:"key_prefix"`
}

// CollectorConfig tunes feed collection
type CollectorConfig struct {
	Workers      int           `koanf:"workers"`
	Timeout      time.Duration `koanf:"timeout"`
	Cooldown     time.Duration `koanf:"cooldown"`
	Interval     time.Duration `koanf:"interval"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`
	HostRPS      float64       `koanf:"host_rps"`
	HostBurst    int           `koanf:"host_burst"`
	UserAgent    string        `koanf:"user_agent"`
}

// EnrichmentConfig tunes the enrichment pool and AI calls
type EnrichmentConfig struct {
	Workers     int           `koanf:"workers"`
	QueueSize   int           `koanf:"queue_size"`
	AITimeout   time.Duration `koanf:"ai_timeout"`
	MaxKeywords int           `koanf:"max_keywords"`
}

// ClusteringConfig tunes story clustering
type ClusteringConfig struct {
	Threshold float64       `koanf:"threshold"`
	Window    time.Duration `koanf:"window"`
}

// RankingConfig tunes feed ranking
type RankingConfig struct {
	RecencyWeight    float64       `koanf:"recency_weight"`
	QualityWeight    float64       `koanf:"quality_weight"`
	AffinityWeight   float64       `koanf:"affinity_weight"`
	HalfLife         time.Duration `koanf:"half_life"`
	DiversityPenalty float64       `koanf:"diversity_penalty"`
	CandidateWindow  time.Duration `koanf:"candidate_window"`
}

// AIConfig configures the OpenAI-compatible adapter
type AIConfig struct {
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	EmbeddingModel string `koanf:"embedding_model"`
	ChatModel      string `koanf:"chat_model"`
}

// Enabled reports whether enough is configured to call the capability
func (a AIConfig) Enabled() bool {
	return a.BaseURL != "" && a.APIKey != ""
}

// SourceConfig is one configured feed source
type SourceConfig struct {
	ID       string `koanf:"id"`
	FeedURL  string `koanf:"feed_url"`
	Category string `koanf:"category"`
	Country  string `koanf:"country"`
	Language string `koanf:"language"`

	// Enabled defaults to true when omitted
	Enabled *bool `koanf:"enabled"`
}

// ToDomain converts the configured source into a registry Source
func (s SourceConfig) ToDomain() domain.Source {
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}
	return domain.Source{
		ID:       strings.TrimSpace(s.ID),
		FeedURL:  strings.TrimSpace(s.FeedURL),
		Category: strings.ToLower(strings.TrimSpace(s.Category)),
		Country:  strings.ToUpper(strings.TrimSpace(s.Country)),
		Language: strings.ToLower(strings.TrimSpace(s.Language)),
		Enabled:  enabled,
	}
}

// DomainSources converts every configured source
func (c *Config) DomainSources() []domain.Source {
	out := make([]domain.Source, len(c.Sources))
	for i, s := range c.Sources {
		out[i] = s.ToDomain()
	}
	return out
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnvOrDefault("PORT", "8000"),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Store: StoreConfig{
			Type:       "memory",
			SQLitePath: "digests.db",
		},
		Cache: CacheConfig{
			Type:       getEnvOrDefault("CACHE_TYPE", "memory"),
			TTL:        7 * 24 * time.Hour,
			SQLitePath: "cache.db",
		},
		Redis: RedisConfig{
			Address:   getEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
			Password:  getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:        getEnvAsIntOrDefault("REDIS_DB", 0),
			KeyPrefix: "digests:",
		},
		Collector: CollectorConfig{
			Workers:      8,
			Timeout:      15 * time.Second,
			Cooldown:     5 * time.Minute,
			Interval:     time.Duration(getEnvAsIntOrDefault("REFRESH_TIMER", 900)) * time.Second,
			MaxBodyBytes: 5 << 20,
			HostRPS:      1,
			HostBurst:    2,
		},
		Enrichment: EnrichmentConfig{
			Workers:     4,
			QueueSize:   256,
			AITimeout:   5 * time.Second,
			MaxKeywords: 5,
		},
		Clustering: ClusteringConfig{
			Threshold: 0.75,
			Window:    48 * time.Hour,
		},
		Ranking: RankingConfig{
			RecencyWeight:    0.45,
			QualityWeight:    0.35,
			AffinityWeight:   0.20,
			HalfLife:         6 * time.Hour,
			DiversityPenalty: 0.5,
			CandidateWindow:  72 * time.Hour,
		},
		AI: AIConfig{
			BaseURL:        "https://api.openai.com",
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
		},
		Features: map[string]bool{
			"conditional_fetch":  true,
			"scheduler":          true,
			"metrics_enabled":    true,
			"rate_limit_enabled": true,
		},
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the environment variable as int or a default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("port cannot be empty")
	}

	switch c.Store.Type {
	case "memory", "redis":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite path cannot be empty when using sqlite store")
		}
	default:
		return fmt.Errorf("store type must be 'memory', 'redis' or 'sqlite', got %q", c.Store.Type)
	}

	switch c.Cache.Type {
	case "redis", "memory", "none":
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			return errors.New("sqlite path cannot be empty when using sqlite cache")
		}
	default:
		return fmt.Errorf("cache type must be 'redis', 'memory', 'sqlite' or 'none', got %q", c.Cache.Type)
	}

	if (c.Cache.Type == "redis" || c.Store.Type == "redis") && c.Redis.Address == "" {
		return errors.New("redis address cannot be empty when using redis")
	}

	if c.Collector.Workers < 1 {
		return errors.New("collector workers must be at least 1")
	}
	if c.Collector.Timeout <= 0 {
		return errors.New("collector timeout must be positive")
	}
	if c.Collector.Cooldown < 0 {
		return errors.New("collector cooldown cannot be negative")
	}
	if c.Collector.Interval <= 0 {
		return errors.New("collector interval must be positive")
	}
	if c.Enrichment.Workers < 1 || c.Enrichment.QueueSize < 1 {
		return errors.New("enrichment workers and queue size must be at least 1")
	}

	if c.Clustering.Threshold <= 0 || c.Clustering.Threshold > 1 {
		return fmt.Errorf("clustering threshold must be in (0,1], got %v", c.Clustering.Threshold)
	}
	if c.Clustering.Window <= 0 {
		return errors.New("clustering window must be positive")
	}

	r := c.Ranking
	if r.RecencyWeight < 0 || r.QualityWeight < 0 || r.AffinityWeight < 0 {
		return errors.New("ranking weights cannot be negative")
	}
	if r.RecencyWeight+r.QualityWeight+r.AffinityWeight == 0 {
		return errors.New("at least one ranking weight must be positive")
	}
	if r.DiversityPenalty <= 0 || r.DiversityPenalty > 1 {
		return fmt.Errorf("diversity penalty must be in (0,1], got %v", r.DiversityPenalty)
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		id := strings.TrimSpace(s.ID)
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate source id %q", id)
		}
		seen[id] = struct{}{}
	}

	return nil
}
