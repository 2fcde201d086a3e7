package featureflags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIEnrichment_DisabledByDefault(t *testing.T) {
	manager := NewEnvManager("TEST_FEATURE_")
	ctx := context.Background()

	// Should be disabled when env var not set
	assert.False(t, manager.IsEnabled(ctx, AIEnrichment))
	_, set := manager.Lookup(AIEnrichment)
	assert.False(t, set)
}

func TestAIEnrichment_EnabledWhenFlagSet(t *testing.T) {
	t.Setenv("TEST_FEATURE_AI_ENRICHMENT", "true")

	manager := NewEnvManager("TEST_FEATURE_")
	assert.True(t, manager.IsEnabled(context.Background(), AIEnrichment))
}

func TestEnvManager_MultipleValues(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"true lowercase", "true", true},
		{"TRUE uppercase", "TRUE", true},
		{"1 numeric", "1", true},
		{"enabled", "enabled", true},
		{"ENABLED", "ENABLED", true},
		{"false", "false", false},
		{"0", "0", false},
		{"empty", "", false},
		{"other", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_FLAG", tt.value)

			manager := NewEnvManager("TEST_")
			assert.Equal(t, tt.expected, manager.IsEnabled(context.Background(), "FLAG"))
		})
	}
}

func TestEnvManager_OverrideTakesPrecedence(t *testing.T) {
	t.Setenv("TEST_FEATURE_CONDITIONAL_FETCH", "true")

	manager := NewEnvManager("TEST_FEATURE_")
	ctx := context.Background()
	assert.True(t, manager.IsEnabled(ctx, ConditionalFetch))

	manager.SetEnabled(ConditionalFetch, false)
	assert.False(t, manager.IsEnabled(ctx, ConditionalFetch))
}

func TestStaticManager(t *testing.T) {
	manager := NewStaticManager(map[FeatureFlag]bool{
		Embeddings: true,
		Scheduler:  false,
	})
	ctx := context.Background()

	assert.True(t, manager.IsEnabled(ctx, Embeddings))
	assert.False(t, manager.IsEnabled(ctx, Scheduler))
	assert.False(t, manager.IsEnabled(ctx, MetricsEnabled)) // Not in initial map
}

func TestStaticManager_CopiesInput(t *testing.T) {
	input := map[FeatureFlag]bool{Embeddings: true}
	manager := NewStaticManager(input)
	input[Embeddings] = false

	assert.True(t, manager.IsEnabled(context.Background(), Embeddings))
}

func TestLayeredManager_EnvOverridesStatic(t *testing.T) {
	t.Setenv("TEST_LAYER_SCHEDULER", "false")
	t.Setenv("TEST_LAYER_METRICS_ENABLED", "1")

	base := NewStaticManager(map[FeatureFlag]bool{
		Scheduler:    true,
		AIEnrichment: true,
	})
	manager := NewLayeredManager(base, NewEnvManager("TEST_LAYER_"))
	ctx := context.Background()

	assert.False(t, manager.IsEnabled(ctx, Scheduler), "env false beats static true")
	assert.True(t, manager.IsEnabled(ctx, MetricsEnabled), "env true beats missing static")
	assert.True(t, manager.IsEnabled(ctx, AIEnrichment), "unset env falls through")

	all := manager.GetAllFlags()
	assert.Len(t, all, len(All()))
	assert.False(t, all[Scheduler])
}

func TestContextIntegration(t *testing.T) {
	manager := NewStaticManager(map[FeatureFlag]bool{
		RateLimitEnabled: true,
	})
	ctx := WithManager(context.Background(), manager)

	assert.True(t, IsEnabled(ctx, RateLimitEnabled))
	assert.False(t, IsEnabled(ctx, Embeddings))
}

func TestFromContext_DefaultManager(t *testing.T) {
	// Without manager in context, should return default (all disabled)
	for _, f := range All() {
		assert.False(t, IsEnabled(context.Background(), f), f)
	}
}

func TestConcurrentAccess(t *testing.T) {
	manager := NewStaticManager(nil)
	ctx := context.Background()

	done := make(chan bool)

	for i := 0; i < 5; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				manager.SetEnabled(Embeddings, j%2 == 0)
			}
			done <- true
		}()
	}

	for i := 0; i < 5; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = manager.IsEnabled(ctx, Embeddings)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestFeatureFlagNames(t *testing.T) {
	assert.Equal(t, FeatureFlag("ai_enrichment"), AIEnrichment)
	assert.Equal(t, FeatureFlag("embeddings"), Embeddings)
	assert.Equal(t, FeatureFlag("conditional_fetch"), ConditionalFetch)
	assert.Equal(t, FeatureFlag("scheduler"), Scheduler)
	assert.Equal(t, FeatureFlag("metrics_enabled"), MetricsEnabled)
	assert.Equal(t, FeatureFlag("rate_limit_enabled"), RateLimitEnabled)
}
