// ABOUTME: Feature flag management for optional pipeline capabilities
// ABOUTME: Static flags come from configuration; FEATURE_* environment variables override them

package featureflags

import (
	"context"
	"os"
	"strings"
	"sync"
)

// FeatureFlag represents a single feature flag
type FeatureFlag string

// Defined feature flags
const (
	// AIEnrichment lets the AI capability supersede vocabulary keywords and add summaries
	AIEnrichment FeatureFlag = "ai_enrichment"

	// Embeddings requests embedding vectors for clustering and related articles
	Embeddings FeatureFlag = "embeddings"

	// ConditionalFetch sends If-None-Match / If-Modified-Since on feed requests
	ConditionalFetch FeatureFlag = "conditional_fetch"

	// Scheduler runs collection on a ticker
	Scheduler FeatureFlag = "scheduler"

	// MetricsEnabled enables the metrics endpoint
	MetricsEnabled FeatureFlag = "metrics_enabled"

	// RateLimitEnabled enables API rate limiting
	RateLimitEnabled FeatureFlag = "rate_limit_enabled"
)

// All lists every defined flag
func All() []FeatureFlag {
	return []FeatureFlag{AIEnrichment, Embeddings, ConditionalFetch, Scheduler, MetricsEnabled, RateLimitEnabled}
}

// Manager defines the interface for feature flag management
type Manager interface {
	// IsEnabled checks if a feature flag is enabled
	IsEnabled(ctx context.Context, flag FeatureFlag) bool

	// SetEnabled sets a feature flag's state (for testing)
	SetEnabled(flag FeatureFlag, enabled bool)

	// GetAllFlags returns the state of all flags
	GetAllFlags() map[FeatureFlag]bool
}

// EnvManager implements Manager using environment variables
type EnvManager struct {
	mu        sync.RWMutex
	overrides map[FeatureFlag]bool
	prefix    string
}

// NewEnvManager creates a new environment-based feature flag manager
func NewEnvManager(prefix string) *EnvManager {
	if prefix == "" {
		prefix = "FEATURE_"
	}
	return &EnvManager{
		overrides: make(map[FeatureFlag]bool),
		prefix:    prefix,
	}
}

// Lookup reports the flag's state and whether anything set it
func (m *EnvManager) Lookup(flag FeatureFlag) (enabled bool, set bool) {
	m.mu.RLock()
	if enabled, ok := m.overrides[flag]; ok {
		m.mu.RUnlock()
		return enabled, true
	}
	m.mu.RUnlock()

	value, ok := os.LookupEnv(m.prefix + strings.ToUpper(string(flag)))
	if !ok {
		return false, false
	}
	return parseBool(value), true
}

// IsEnabled checks if a feature flag is enabled
func (m *EnvManager) IsEnabled(ctx context.Context, flag FeatureFlag) bool {
	enabled, _ := m.Lookup(flag)
	return enabled
}

// SetEnabled sets a feature flag's state (mainly for testing)
func (m *EnvManager) SetEnabled(flag FeatureFlag, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[flag] = enabled
}

// GetAllFlags returns the state of all defined flags
func (m *EnvManager) GetAllFlags() map[FeatureFlag]bool {
	ctx := context.Background()
	flags := make(map[FeatureFlag]bool)
	for _, f := range All() {
		flags[f] = m.IsEnabled(ctx, f)
	}
	return flags
}

// StaticManager implements Manager with static configuration
type StaticManager struct {
	flags map[FeatureFlag]bool
	mu    sync.RWMutex
}

// NewStaticManager creates a manager with predefined flag states
func NewStaticManager(flags map[FeatureFlag]bool) *StaticManager {
	copied := make(map[FeatureFlag]bool, len(flags))
	for k, v := range flags {
		copied[k] = v
	}
	return &StaticManager{
		flags: copied,
	}
}

// IsEnabled checks if a feature flag is enabled
func (m *StaticManager) IsEnabled(ctx context.Context, flag FeatureFlag) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[flag]
}

// SetEnabled sets a feature flag's state
func (m *StaticManager) SetEnabled(flag FeatureFlag, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[flag] = enabled
}

// GetAllFlags returns all flag states
func (m *StaticManager) GetAllFlags() map[FeatureFlag]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[FeatureFlag]bool)
	for k, v := range m.flags {
		result[k] = v
	}
	return result
}

// LayeredManager consults an environment override before the static base
type LayeredManager struct {
	base     Manager
	override *EnvManager
}

// NewLayeredManager stacks env over base
func NewLayeredManager(base Manager, env *EnvManager) *LayeredManager {
	if base == nil {
		base = NewStaticManager(nil)
	}
	if env == nil {
		env = NewEnvManager("")
	}
	return &LayeredManager{base: base, override: env}
}

// IsEnabled returns the env override when present, else the base value
func (m *LayeredManager) IsEnabled(ctx context.Context, flag FeatureFlag) bool {
	if enabled, set := m.override.Lookup(flag); set {
		return enabled
	}
	return m.base.IsEnabled(ctx, flag)
}

// SetEnabled sets an override
func (m *LayeredManager) SetEnabled(flag FeatureFlag, enabled bool) {
	m.override.SetEnabled(flag, enabled)
}

// GetAllFlags returns the effective state of every defined flag
func (m *LayeredManager) GetAllFlags() map[FeatureFlag]bool {
	ctx := context.Background()
	flags := make(map[FeatureFlag]bool)
	for _, f := range All() {
		flags[f] = m.IsEnabled(ctx, f)
	}
	return flags
}

func parseBool(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "true" || v == "1" || v == "enabled"
}

// ContextKey for storing feature flags in context
type contextKey struct{}

// WithManager adds a feature flag manager to the context
func WithManager(ctx context.Context, manager Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, manager)
}

// FromContext retrieves the feature flag manager from context
func FromContext(ctx context.Context) Manager {
	if manager, ok := ctx.Value(contextKey{}).(Manager); ok {
		return manager
	}
	// Return a default manager that disables all features
	return NewStaticManager(nil)
}

// IsEnabled is a convenience function to check if a feature is enabled
func IsEnabled(ctx context.Context, flag FeatureFlag) bool {
	return FromContext(ctx).IsEnabled(ctx, flag)
}
