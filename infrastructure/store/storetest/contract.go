// ABOUTME: Shared behaviour suite run against every store adapter
// ABOUTME: Covers sources, articles, the canonical URL index, clusters and health

// Package storetest provides a contract suite every interfaces.Store adapter must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
)

// Factory returns a fresh, empty store for one subtest
type Factory func(t *testing.T) interfaces.Store

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Run executes the full contract against stores produced by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("sources", func(t *testing.T) { testSources(t, newStore(t)) })
	t.Run("articles", func(t *testing.T) { testArticles(t, newStore(t)) })
	t.Run("article url index", func(t *testing.T) { testArticleURL(t, newStore(t)) })
	t.Run("clusters", func(t *testing.T) { testClusters(t, newStore(t)) })
	t.Run("health", func(t *testing.T) { testHealth(t, newStore(t)) })
	t.Run("not found", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

func testSources(t *testing.T, s interfaces.Store) {
	ctx := context.Background()

	require.NoError(t, s.PutSource(ctx, &domain.Source{ID: "b", FeedURL: "https://b.example/rss", Category: "tech", Enabled: true, Health: domain.HealthHealthy}))
	require.NoError(t, s.PutSource(ctx, &domain.Source{ID: "a", FeedURL: "https://a.example/rss", Country: "GB", Health: domain.HealthDegraded, ConsecutiveFailures: 1, LastFetchedAt: base}))

	got, err := s.GetSource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/rss", got.FeedURL)
	assert.Equal(t, domain.HealthDegraded, got.Health)
	assert.Equal(t, 1, got.ConsecutiveFailures)
	assert.True(t, got.LastFetchedAt.Equal(base))

	// overwrite
	got.Enabled = true
	require.NoError(t, s.PutSource(ctx, got))

	all, err := s.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.True(t, all[0].Enabled)
	assert.Equal(t, "b", all[1].ID)
}

func testArticles(t *testing.T, s interfaces.Store) {
	ctx := context.Background()

	old := &domain.Article{ID: "old", SourceID: "a", CanonicalURL: "https://a.example/old", Title: "Old", PublishedAt: base.Add(-48 * time.Hour)}
	mid := &domain.Article{
		ID: "mid", SourceID: "a", CanonicalURL: "https://a.example/mid", Title: "Mid",
		PublishedAt: base, Keywords: []string{"economy", "rates"}, QualityScore: 0.5,
		Embedding: []float32{0.25, -1, 3}, ClusterID: "c1", KeywordSource: domain.KeywordsFromAI,
	}
	newest := &domain.Article{ID: "new", SourceID: "b", CanonicalURL: "https://b.example/new", Title: "New", PublishedAt: base.Add(time.Hour)}

	for _, a := range []*domain.Article{newest, old, mid} {
		require.NoError(t, s.PutArticle(ctx, a))
	}

	got, err := s.GetArticle(ctx, "mid")
	require.NoError(t, err)
	assert.Equal(t, mid.Keywords, got.Keywords)
	assert.Equal(t, mid.Embedding, got.Embedding)
	assert.Equal(t, "c1", got.ClusterID)
	assert.Equal(t, domain.KeywordsFromAI, got.KeywordSource)
	assert.InDelta(t, 0.5, got.QualityScore, 1e-9)
	assert.True(t, got.PublishedAt.Equal(base))

	// mutating the returned copy must not change the store
	got.Keywords[0] = "mutated"
	again, err := s.GetArticle(ctx, "mid")
	require.NoError(t, err)
	assert.Equal(t, "economy", again.Keywords[0])

	since, err := s.ListArticlesSince(ctx, base)
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, "mid", since[0].ID)
	assert.Equal(t, "new", since[1].ID)
}

func testArticleURL(t *testing.T, s interfaces.Store) {
	ctx := context.Background()

	a := &domain.Article{ID: "x", CanonicalURL: "https://example.com/story", Title: "Story", PublishedAt: base}
	require.NoError(t, s.PutArticle(ctx, a))

	got, err := s.GetArticleByURL(ctx, "https://example.com/story")
	require.NoError(t, err)
	assert.Equal(t, "x", got.ID)

	_, err = s.GetArticleByURL(ctx, "https://example.com/other")
	assert.True(t, errors.IsNotFound(err))
}

func testClusters(t *testing.T, s interfaces.Store) {
	ctx := context.Background()

	c1 := &domain.StoryCluster{ID: "c1", RepresentativeID: "a1", MemberIDs: []string{"a1"}, Category: "business", CreatedAt: base.Add(-10 * time.Hour)}
	c2 := &domain.StoryCluster{ID: "c2", RepresentativeID: "a2", MemberIDs: []string{"a2", "a3"}, CreatedAt: base}
	require.NoError(t, s.PutCluster(ctx, c2))
	require.NoError(t, s.PutCluster(ctx, c1))

	c1.AddMember("a4", base)
	require.NoError(t, s.PutCluster(ctx, c1))

	got, err := s.GetCluster(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a4"}, got.MemberIDs)
	assert.Equal(t, "business", got.Category)

	recent, err := s.ListClustersSince(ctx, base.Add(-12*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c1", recent[0].ID)
	assert.Equal(t, "c2", recent[1].ID)

	recent, err = s.ListClustersSince(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c2", recent[0].ID)
}

func testHealth(t *testing.T, s interfaces.Store) {
	ctx := context.Background()

	require.NoError(t, s.PutHealth(ctx, &domain.HealthRecord{SourceID: "z", State: domain.HealthCritical, ConsecutiveFailures: 5, LastReason: domain.ReasonTimeout, LastError: "deadline", LastFailureAt: base}))
	require.NoError(t, s.PutHealth(ctx, &domain.HealthRecord{SourceID: "m", State: domain.HealthHealthy, LastSuccessAt: base}))

	got, err := s.GetHealth(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthCritical, got.State)
	assert.Equal(t, 5, got.ConsecutiveFailures)
	assert.Equal(t, domain.ReasonTimeout, got.LastReason)
	assert.True(t, got.LastFailureAt.Equal(base))

	all, err := s.ListHealth(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "m", all[0].SourceID)
	assert.Equal(t, "z", all[1].SourceID)
}

func testNotFound(t *testing.T, s interfaces.Store) {
	ctx := context.Background()

	_, err := s.GetSource(ctx, "missing")
	assert.True(t, errors.IsNotFound(err), "source: %v", err)
	_, err = s.GetArticle(ctx, "missing")
	assert.True(t, errors.IsNotFound(err), "article: %v", err)
	_, err = s.GetCluster(ctx, "missing")
	assert.True(t, errors.IsNotFound(err), "cluster: %v", err)
	_, err = s.GetHealth(ctx, "missing")
	assert.True(t, errors.IsNotFound(err), "health: %v", err)

	list, err := s.ListSources(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
