package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digests-pipeline/core/cluster"
	"digests-pipeline/core/collector"
	"digests-pipeline/core/domain"
	"digests-pipeline/core/enricher"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/health"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/core/normalizer"
	"digests-pipeline/core/registry"
	"digests-pipeline/core/workers"
	"digests-pipeline/infrastructure/store/memory"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func slug(title string) string {
	return strings.ToLower(strings.ReplaceAll(title, " ", "-"))
}

// rssFor renders a small RSS document whose links live under the source's host
func rssFor(sourceID string, titles ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel>`)
	fmt.Fprintf(&b, `<title>%s</title><link>https://%s.example.com/</link><language>en</language>`, sourceID, sourceID)
	for i, title := range titles {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://%s.example.com/%s?utm_source=rss</link>`, title, sourceID, slug(title))
		fmt.Fprintf(&b, `<description>%s reported this morning with more details to follow.</description>`, title)
		fmt.Fprintf(&b, `<pubDate>%s</pubDate></item>`, now.Add(-time.Duration(i+1)*time.Hour).Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func sourceIDFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	return host[:strings.Index(host, ".")]
}

// feedClient serves rssFor(sourceID, feeds[sourceID]...) for every source
func feedClient(feeds map[string][]string) *mockHTTPClient {
	return &mockHTTPClient{
		getFunc: func(_ context.Context, url string) (interfaces.Response, error) {
			titles, ok := feeds[sourceIDFromURL(url)]
			if !ok {
				return &mockResponse{statusCode: 404}, nil
			}
			return &mockResponse{statusCode: 200, body: rssFor(sourceIDFromURL(url), titles...)}, nil
		},
	}
}

type harness struct {
	store    *memory.Store
	registry *registry.Registry
	monitor  *health.Monitor
	logger   *recordingLogger
	orch     *Orchestrator
}

type harnessOption func(*Components)

func newHarness(t *testing.T, client interfaces.HTTPClient, gate *collector.RunGate, ids []string, opts ...harnessOption) *harness {
	t.Helper()

	store := memory.NewStore()
	reg := registry.New(store, nil)
	for _, id := range ids {
		require.NoError(t, reg.Register(context.Background(), domain.Source{
			ID:       id,
			FeedURL:  "https://" + id + ".example.com/rss",
			Category: "business",
			Enabled:  true,
		}))
	}

	logger := newRecordingLogger()
	monitor := health.NewMonitor(store, reg, logger, health.WithClock(clock))

	c := Components{
		Registry:   reg,
		Collector:  collector.New(client, collector.WithGate(gate), collector.WithTimeout(50*time.Millisecond), collector.WithClock(clock)),
		Normalizer: normalizer.New(normalizer.WithClock(clock)),
		Enricher:   enricher.New(),
		Clusterer:  cluster.New(),
		Monitor:    monitor,
		Store:      store,
	}
	for _, opt := range opts {
		opt(&c)
	}

	return &harness{
		store:    store,
		registry: reg,
		monitor:  monitor,
		logger:   logger,
		orch:     New(c, WithLogger(logger), WithClock(clock)),
	}
}

func (h *harness) articles(t *testing.T) []*domain.Article {
	t.Helper()
	all, err := h.store.ListArticlesSince(context.Background(), time.Time{})
	require.NoError(t, err)
	return all
}

func openGate() *collector.RunGate {
	return collector.NewRunGate(0)
}

func TestRun_StoresEnrichedAndClusteredArticles(t *testing.T) {
	client := feedClient(map[string][]string{
		"alpha": {"Central Bank Raises Rates", "Storm Closes Coastal Highways"},
		"beta":  {"Central Bank Raises Rates", "Local Team Wins Championship Final"},
	})
	h := newHarness(t, client, openGate(), []string{"alpha", "beta"})

	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 4, summary.Articles)
	assert.Equal(t, 3, summary.ClustersCreated)
	assert.Empty(t, summary.Failed())
	require.Len(t, summary.Sources, 2)
	assert.Equal(t, 2, summary.Sources[0].Articles)
	assert.Equal(t, 2, summary.Sources[1].Articles)

	stored := h.articles(t)
	require.Len(t, stored, 4)

	byCluster := map[string][]string{}
	for _, a := range stored {
		require.NotEmpty(t, a.ClusterID, a.ID)
		assert.Equal(t, domain.KeywordsFromVocabulary, a.KeywordSource)
		assert.Greater(t, a.QualityScore, 0.0)
		assert.NotContains(t, a.CanonicalURL, "utm_source")
		byCluster[a.ClusterID] = append(byCluster[a.ClusterID], a.SourceID)
	}
	assert.Len(t, byCluster, 3)

	var rates *domain.Article
	for _, a := range stored {
		if a.Title == "Central Bank Raises Rates" {
			rates = a
			break
		}
	}
	require.NotNil(t, rates)
	c, err := h.store.GetCluster(context.Background(), rates.ClusterID)
	require.NoError(t, err)
	assert.Len(t, c.MemberIDs, 2)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, byCluster[rates.ClusterID])
}

func TestRun_CooldownRejectsSecondTrigger(t *testing.T) {
	var fetches int32
	client := feedClient(map[string][]string{"alpha": {"Central Bank Raises Rates"}})
	counting := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			atomic.AddInt32(&fetches, 1)
			return client.getFunc(ctx, url)
		},
	}
	gate := collector.NewRunGate(5*time.Minute, collector.WithGateClock(clock))
	h := newHarness(t, counting, gate, []string{"alpha"})

	first, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := h.orch.Run(context.Background())
	assert.Nil(t, second)
	require.Error(t, err)
	assert.True(t, errors.IsCooldown(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))

	assert.Contains(t, h.logger.Messages("info"), "Collection run rejected")
	assert.NotContains(t, h.logger.Messages("error"), "Collection run rejected")
}

func TestRun_OverlappingTriggerIsRejected(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once

	client := &mockHTTPClient{
		getFunc: func(context.Context, string) (interfaces.Response, error) {
			once.Do(func() { close(started) })
			<-unblock
			return &mockResponse{statusCode: 200, body: rssFor("alpha", "Central Bank Raises Rates")}, nil
		},
	}
	h := newHarness(t, client, openGate(), []string{"alpha"})
	h.orch.c.Collector = collector.New(client, collector.WithGate(openGate()), collector.WithTimeout(5*time.Second), collector.WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Run(context.Background())
		done <- err
	}()

	<-started
	_, err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCooldown(err))

	close(unblock)
	require.NoError(t, <-done)
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	fast := feedClient(map[string][]string{
		"alpha": {"Central Bank Raises Rates"},
		"beta":  {"Storm Closes Coastal Highways"},
		"gamma": {"Local Team Wins Championship Final"},
	})
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			if sourceIDFromURL(url) == "slow" {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return fast.getFunc(ctx, url)
		},
	}
	h := newHarness(t, client, openGate(), []string{"alpha", "beta", "gamma", "slow"})

	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"slow"}, summary.Failed())
	assert.Equal(t, 3, summary.Articles)
	assert.Len(t, h.articles(t), 3)

	for _, o := range summary.Sources {
		if o.SourceID == "slow" {
			assert.Equal(t, domain.ReasonTimeout, o.Reason)
			assert.Equal(t, domain.HealthDegraded, o.Health)
			continue
		}
		assert.True(t, o.Success, o.SourceID)
		assert.Equal(t, domain.HealthHealthy, o.Health, o.SourceID)
	}

	src, err := h.registry.Get(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthDegraded, src.Health)
	assert.Equal(t, 1, src.ConsecutiveFailures)
}

func TestRun_RerunDoesNotDuplicateURLs(t *testing.T) {
	client := feedClient(map[string][]string{
		"alpha": {"Central Bank Raises Rates", "Storm Closes Coastal Highways"},
	})
	h := newHarness(t, client, openGate(), []string{"alpha"})

	first, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Articles)

	second, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Articles)
	assert.Equal(t, 2, second.Duplicates)
	assert.Equal(t, 0, second.ClustersCreated)

	stored := h.articles(t)
	require.Len(t, stored, 2)
	urls := map[string]bool{}
	for _, a := range stored {
		assert.False(t, urls[a.CanonicalURL], "duplicate url %s", a.CanonicalURL)
		urls[a.CanonicalURL] = true
	}
}

func TestRun_CrossSourceSameURLIsStoredOnce(t *testing.T) {
	doc := rssFor("shared", "Central Bank Raises Rates")
	client := &mockHTTPClient{
		getFunc: func(context.Context, string) (interfaces.Response, error) {
			return &mockResponse{statusCode: 200, body: doc}, nil
		},
	}
	h := newHarness(t, client, openGate(), []string{"alpha", "beta"})

	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Articles)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 1, summary.Sources[1].Duplicates)
	assert.Len(t, h.articles(t), 1)
}

func TestRun_HealthSequenceAcrossRuns(t *testing.T) {
	var healthy atomic.Bool
	client := &mockHTTPClient{
		getFunc: func(context.Context, string) (interfaces.Response, error) {
			if healthy.Load() {
				return &mockResponse{statusCode: 200, body: rssFor("alpha")}, nil
			}
			return &mockResponse{statusCode: 503}, nil
		},
	}
	h := newHarness(t, client, openGate(), []string{"alpha"})

	var states []domain.HealthState
	for i := 0; i < 5; i++ {
		if i == 4 {
			healthy.Store(true)
		}
		summary, err := h.orch.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, summary.Sources, 1)
		states = append(states, summary.Sources[0].Health)
	}

	assert.Equal(t, []domain.HealthState{
		domain.HealthDegraded,
		domain.HealthFailing,
		domain.HealthCritical,
		domain.HealthCritical,
		domain.HealthHealthy,
	}, states)

	rec, err := h.monitor.Get(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ConsecutiveFailures)
}

func TestRun_ParseFailureHasDistinctReason(t *testing.T) {
	client := &mockHTTPClient{
		getFunc: func(context.Context, string) (interfaces.Response, error) {
			return &mockResponse{statusCode: 200, body: "this is not a feed"}, nil
		},
	}
	h := newHarness(t, client, openGate(), []string{"alpha"})

	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Sources, 1)
	o := summary.Sources[0]
	assert.False(t, o.Success)
	assert.Equal(t, domain.ReasonParse, o.Reason)
	assert.Equal(t, domain.HealthDegraded, o.Health)
	assert.Contains(t, h.logger.Messages("warn"), "Source collection failed")
}

func TestRun_EmptyFeedIsSuccess(t *testing.T) {
	client := feedClient(map[string][]string{"alpha": {}})
	h := newHarness(t, client, openGate(), []string{"alpha"})

	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Sources, 1)
	assert.True(t, summary.Sources[0].Success)
	assert.Equal(t, domain.HealthHealthy, summary.Sources[0].Health)
	assert.Equal(t, 0, summary.Articles)
}

func TestRun_DisabledSourcesAreNotCollected(t *testing.T) {
	client := feedClient(map[string][]string{
		"alpha": {"Central Bank Raises Rates"},
		"beta":  {"Storm Closes Coastal Highways"},
	})
	h := newHarness(t, client, openGate(), []string{"alpha", "beta"})
	require.NoError(t, h.registry.SetEnabled(context.Background(), "beta", false))

	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Sources, 1)
	assert.Equal(t, "alpha", summary.Sources[0].SourceID)
}

func TestRun_EnrichmentPoolAndVectorIndex(t *testing.T) {
	client := feedClient(map[string][]string{
		"alpha": {"Central Bank Raises Rates"},
		"beta":  {"Reserve Bank Hikes Interest Rates"},
	})
	embedder := &mockEmbedder{
		embedFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				if strings.HasPrefix(text, "Central") {
					out[i] = []float32{1, 0}
				} else {
					out[i] = []float32{0.82, 0.5724334}
				}
			}
			return out, nil
		},
	}
	index := newMockIndex()
	enr := enricher.New(enricher.WithEmbedder(embedder, time.Second))
	pool := workers.NewEnrichmentWorker(enr, workers.WorkerConfig{MaxWorkers: 2, QueueSize: 10})
	require.NoError(t, pool.Start())
	defer pool.Stop()

	h := newHarness(t, client, openGate(), []string{"alpha", "beta"}, func(c *Components) {
		c.Enricher = enr
		c.Pool = pool
		c.Index = index
	})

	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Articles)
	assert.Equal(t, 1, summary.ClustersCreated)
	assert.Equal(t, 2, index.Len())

	stored := h.articles(t)
	require.Len(t, stored, 2)
	assert.Equal(t, stored[0].ClusterID, stored[1].ClusterID)
	for _, a := range stored {
		assert.True(t, a.HasEmbedding())
	}
}

// clusterFailingStore rejects cluster writes while failClusters is set
type clusterFailingStore struct {
	*memory.Store
	failClusters atomic.Bool
}

func (s *clusterFailingStore) PutCluster(ctx context.Context, c *domain.StoryCluster) error {
	if s.failClusters.Load() {
		return fmt.Errorf("disk full")
	}
	return s.Store.PutCluster(ctx, c)
}

func TestRun_ClusterWriteFailureLeavesArticlesForNextRun(t *testing.T) {
	client := feedClient(map[string][]string{
		"alpha": {"Central Bank Raises Rates"},
	})
	var failing *clusterFailingStore
	h := newHarness(t, client, openGate(), []string{"alpha"}, func(c *Components) {
		failing = &clusterFailingStore{Store: c.Store.(*memory.Store)}
		failing.failClusters.Store(true)
		c.Store = failing
	})

	_, err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, h.articles(t))

	_, err = h.store.GetArticleByURL(context.Background(), "https://alpha.example.com/central-bank-raises-rates")
	assert.True(t, errors.IsNotFound(err))

	failing.failClusters.Store(false)
	summary, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Articles)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 1, summary.ClustersCreated)

	stored := h.articles(t)
	require.Len(t, stored, 1)
	c, err := h.store.GetCluster(context.Background(), stored[0].ClusterID)
	require.NoError(t, err)
	assert.Contains(t, c.MemberIDs, stored[0].ID)
}

func TestRun_CancelledRunRecordsNoHealth(t *testing.T) {
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			select {
			case <-time.After(20 * time.Millisecond):
				return &mockResponse{statusCode: 200, body: rssFor(sourceIDFromURL(url), "Central Bank Raises Rates")}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	h := newHarness(t, client, openGate(), []string{"alpha", "beta"})

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(5*time.Millisecond, cancel)
	defer timer.Stop()

	summary, err := h.orch.Run(ctx)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, h.logger.Messages("warn"), "Collection run cancelled")
	assert.NotContains(t, h.logger.Messages("warn"), "Source collection failed")

	for _, id := range []string{"alpha", "beta"} {
		_, err := h.store.GetHealth(context.Background(), id)
		assert.True(t, errors.IsNotFound(err), "health recorded for %s", id)
	}
	assert.Empty(t, h.articles(t))

	// the gate was released, so a fresh run collects normally
	summary, err = h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Articles)
}
