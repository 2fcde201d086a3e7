// ABOUTME: Orchestrator coordinates one collection run end to end
// ABOUTME: Collect, normalize, observe health, drop known URLs, enrich, cluster, then persist

package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

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
	"digests-pipeline/pkg/metrics"
)

// Components are the collaborators a run is wired from.
// Pool and Index are optional.
type Components struct {
	Registry   *registry.Registry
	Collector  *collector.Collector
	Normalizer *normalizer.Normalizer
	Enricher   *enricher.Enricher
	Pool       *workers.EnrichmentWorker
	Clusterer  *cluster.Clusterer
	Monitor    *health.Monitor
	Store      interfaces.Store
	Index      interfaces.VectorIndex
}

// SourceOutcome is what happened to one source during a run
type SourceOutcome struct {
	SourceID    string               `json:"source_id"`
	Success     bool                 `json:"success"`
	NotModified bool                 `json:"not_modified,omitempty"`
	Reason      domain.FailureReason `json:"reason,omitempty"`
	Error       string               `json:"error,omitempty"`
	Articles    int                  `json:"articles"`
	Skipped     int                  `json:"skipped,omitempty"`
	Duplicates  int                  `json:"duplicates,omitempty"`
	Health      domain.HealthState   `json:"health,omitempty"`
}

// RunSummary reports a completed collection run
type RunSummary struct {
	RunID           string          `json:"run_id"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	Sources         []SourceOutcome `json:"sources"`
	Articles        int             `json:"articles"`
	Duplicates      int             `json:"duplicates"`
	Skipped         int             `json:"skipped"`
	ClustersCreated int             `json:"clusters_created"`
	ClustersUpdated int             `json:"clusters_updated"`
}

// Failed returns the ids of sources whose attempt failed
func (s *RunSummary) Failed() []string {
	var ids []string
	for _, o := range s.Sources {
		if !o.Success {
			ids = append(ids, o.SourceID)
		}
	}
	return ids
}

// Orchestrator runs collection end to end
type Orchestrator struct {
	c       Components
	logger  interfaces.Logger
	metrics *metrics.Manager
	now     func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the run logger
func WithLogger(logger interfaces.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics publishes run metrics
func WithMetrics(mm *metrics.Manager) Option {
	return func(o *Orchestrator) { o.metrics = mm }
}

// WithClock overrides the time source used for the clustering window
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator
func New(c Components, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		c:      c,
		logger: interfaces.NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// pending is one normalized article waiting for dedup and enrichment
type pending struct {
	outcome int
	article domain.Article
}

// Run executes one collection. A run rejected by the gate returns a
// *errors.CooldownError and no summary; per-source failures never fail the run.
// Cancelling ctx during the fetch returns ctx's error and records no health.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	release, err := o.c.Collector.Gate().Acquire()
	if err != nil {
		o.metrics.RunRejected()
		o.logger.Info("Collection run rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	defer release()

	summary := &RunSummary{RunID: uuid.NewString(), StartedAt: o.now()}
	start := time.Now()

	o.logger.Info("Collection run started", map[string]interface{}{
		"run_id": summary.RunID,
	})

	sources, err := o.c.Registry.Enabled(ctx)
	if err != nil {
		o.metrics.RunFailed()
		return nil, errors.WrapError(err, "list enabled sources")
	}

	byID := make(map[string]domain.Source, len(sources))
	for _, src := range sources {
		byID[src.ID] = src
	}

	results := o.c.Collector.Fetch(ctx, sources)

	// a caller's cancellation says nothing about the sources, so no health is recorded
	if err := ctx.Err(); err != nil {
		o.metrics.RunFailed()
		o.logger.Warn("Collection run cancelled", map[string]interface{}{
			"run_id": summary.RunID,
			"error":  err.Error(),
		})
		return nil, errors.WrapError(err, "collection cancelled")
	}

	summary.Sources = make([]SourceOutcome, len(results))

	var batch []pending
	for i, res := range results {
		outcome := &summary.Sources[i]
		outcome.SourceID = res.SourceID

		articles := o.settle(ctx, summary.RunID, byID[res.SourceID], res, outcome)
		for _, a := range articles {
			batch = append(batch, pending{outcome: i, article: a})
		}
		summary.Skipped += outcome.Skipped
	}

	fresh, owners := o.dropKnown(ctx, batch, summary)

	enriched := o.enrich(ctx, fresh)

	if err := o.clusterAndStore(ctx, enriched, summary); err != nil {
		o.metrics.RunFailed()
		o.logger.Error("Collection run failed", map[string]interface{}{
			"run_id": summary.RunID,
			"error":  err.Error(),
		})
		return summary, err
	}

	for _, idx := range owners {
		summary.Sources[idx].Articles++
	}
	summary.Articles = len(enriched)
	summary.FinishedAt = o.now()

	o.metrics.ArticlesIngested(summary.Articles)
	o.metrics.DuplicatesDropped(summary.Duplicates)
	o.metrics.RunCompleted(time.Since(start))

	o.logger.Info("Collection run completed", map[string]interface{}{
		"run_id":           summary.RunID,
		"sources":          len(summary.Sources),
		"failed":           len(summary.Failed()),
		"articles":         summary.Articles,
		"duplicates":       summary.Duplicates,
		"skipped":          summary.Skipped,
		"clusters_created": summary.ClustersCreated,
		"duration_ms":      time.Since(start).Milliseconds(),
	})

	return summary, nil
}

// settle turns one fetch result into articles and a health observation
func (o *Orchestrator) settle(ctx context.Context, runID string, src domain.Source, res collector.Result, outcome *SourceOutcome) []domain.Article {
	var (
		articles []domain.Article
		failure  error
	)

	switch {
	case !res.OK():
		failure = res.Err
	case res.NotModified:
		outcome.NotModified = true
	default:
		norm, err := o.c.Normalizer.NormalizeSource(src, res.Body, res.FetchedAt)
		if err != nil {
			failure = err
			// a broken document must be fetched in full next time
			o.c.Collector.ForgetValidators(ctx, src.ID)
			break
		}
		articles = norm.Articles
		outcome.Skipped = norm.Skipped
	}

	observation := health.Succeeded(res.FetchedAt)
	if failure != nil {
		observation = health.Failed(failure, res.FetchedAt)
		outcome.Reason = observation.Reason
		outcome.Error = failure.Error()
		o.logger.Warn("Source collection failed", map[string]interface{}{
			"run_id":    runID,
			"source_id": res.SourceID,
			"reason":    string(observation.Reason),
			"error":     failure.Error(),
		})
	}
	outcome.Success = failure == nil

	state, err := o.c.Monitor.Observe(ctx, res.SourceID, observation)
	if err != nil {
		o.logger.Error("Failed to record source health", map[string]interface{}{
			"run_id":    runID,
			"source_id": res.SourceID,
			"error":     err.Error(),
		})
	}
	outcome.Health = state

	return articles
}

// dropKnown removes articles whose canonical URL was already stored or already
// seen earlier in this run. owners maps each kept article to its source outcome.
func (o *Orchestrator) dropKnown(ctx context.Context, batch []pending, summary *RunSummary) ([]domain.Article, []int) {
	seen := make(map[string]struct{}, len(batch))
	fresh := make([]domain.Article, 0, len(batch))
	owners := make([]int, 0, len(batch))

	for _, p := range batch {
		key := p.article.CanonicalURL
		if _, dup := seen[key]; dup {
			summary.Sources[p.outcome].Duplicates++
			summary.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		_, err := o.c.Store.GetArticleByURL(ctx, key)
		switch {
		case err == nil:
			summary.Sources[p.outcome].Duplicates++
			summary.Duplicates++
			continue
		case !errors.IsNotFound(err):
			o.logger.Warn("Dedup lookup failed, skipping article", map[string]interface{}{
				"run_id":        summary.RunID,
				"source_id":     p.article.SourceID,
				"canonical_url": key,
				"error":         err.Error(),
			})
			continue
		}

		fresh = append(fresh, p.article)
		owners = append(owners, p.outcome)
	}
	return fresh, owners
}

// enrich runs articles through the pool when one is configured
func (o *Orchestrator) enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	if len(articles) == 0 {
		return articles
	}
	if o.c.Pool != nil {
		return o.c.Pool.EnrichBatch(ctx, articles, o.c.Enricher.EnrichDeterministic)
	}
	out := make([]domain.Article, len(articles))
	for i, a := range articles {
		out[i] = o.c.Enricher.Enrich(ctx, a)
	}
	return out
}

// clusterAndStore assigns clusters in publish order and persists the results
func (o *Orchestrator) clusterAndStore(ctx context.Context, articles []domain.Article, summary *RunSummary) error {
	if len(articles) == 0 {
		return nil
	}

	w, err := o.loadWindow(ctx)
	if err != nil {
		return err
	}

	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.Before(articles[j].PublishedAt)
		}
		return articles[i].ID < articles[j].ID
	})

	for i := range articles {
		if o.c.Clusterer.Assign(w, &articles[i]).Created {
			summary.ClustersCreated++
		}
	}

	// clusters go first so a stored article never references a missing cluster
	for _, c := range w.Dirty() {
		if err := o.c.Store.PutCluster(ctx, c); err != nil {
			return errors.WrapError(err, "store cluster "+c.ID)
		}
	}

	for i := range articles {
		a := &articles[i]
		if err := o.c.Store.PutArticle(ctx, a); err != nil {
			return errors.WrapError(err, "store article "+a.ID)
		}
		if o.c.Index != nil && a.HasEmbedding() {
			if err := o.c.Index.Upsert(ctx, a.ID, a.Embedding); err != nil {
				o.logger.Warn("Vector index upsert failed", map[string]interface{}{
					"run_id":     summary.RunID,
					"article_id": a.ID,
					"error":      err.Error(),
				})
			}
		}
	}

	summary.ClustersUpdated = len(w.Dirty()) - summary.ClustersCreated

	return nil
}

// loadWindow builds the clustering arena from recently created clusters
func (o *Orchestrator) loadWindow(ctx context.Context) (*cluster.Window, error) {
	w := o.c.Clusterer.NewWindow(o.now())

	recent, err := o.c.Store.ListClustersSince(ctx, w.Since())
	if err != nil {
		return nil, errors.WrapError(err, "load recent clusters")
	}

	for _, c := range recent {
		members := make([]*domain.Article, 0, len(c.MemberIDs))
		for _, id := range c.MemberIDs {
			a, err := o.c.Store.GetArticle(ctx, id)
			if err != nil {
				if errors.IsNotFound(err) {
					continue
				}
				return nil, errors.WrapError(err, "load cluster member")
			}
			members = append(members, a)
		}
		w.AddCluster(c, members)
	}
	return w, nil
}
