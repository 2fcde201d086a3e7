// ABOUTME: Clusterer assigns each enriched article to a story cluster in one greedy pass
// ABOUTME: Embedding cosine similarity when both sides have vectors, title Jaccard otherwise

package cluster

import (
	"time"

	"github.com/google/uuid"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/pkg/metrics"
	"digests-pipeline/pkg/utils/similarity"
	"digests-pipeline/pkg/utils/text"
)

const (
	// DefaultThreshold is the inclusive similarity needed to join a cluster
	DefaultThreshold = 0.75

	// DefaultWindow bounds how far back candidate clusters are considered
	DefaultWindow = 48 * time.Hour
)

// Signal names which similarity measure decided an assignment
type Signal string

const (
	SignalEmbedding Signal = "embedding"
	SignalTitle     Signal = "title"
)

// Assignment describes where an article landed
type Assignment struct {
	ClusterID  string
	Created    bool
	Similarity float64
	Signal     Signal
}

// Clusterer groups articles into StoryClusters. It holds no state between calls;
// everything it compares against lives in the Window passed in.
type Clusterer struct {
	threshold float64
	window    time.Duration
	newID     func() string
	logger    interfaces.Logger
	metrics   *metrics.Manager
}

// Option configures a Clusterer
type Option func(*Clusterer)

// WithThreshold sets the inclusive similarity threshold
func WithThreshold(threshold float64) Option {
	return func(c *Clusterer) {
		if threshold > 0 && threshold <= 1 {
			c.threshold = threshold
		}
	}
}

// WithWindow sets the recency window for candidate clusters
func WithWindow(window time.Duration) Option {
	return func(c *Clusterer) {
		if window > 0 {
			c.window = window
		}
	}
}

// WithIDGenerator replaces the cluster id generator. Ids must sort oldest first.
func WithIDGenerator(gen func() string) Option {
	return func(c *Clusterer) { c.newID = gen }
}

// WithLogger sets the logger
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Clusterer) { c.logger = logger }
}

// WithMetrics counts created and joined clusters
func WithMetrics(mm *metrics.Manager) Option {
	return func(c *Clusterer) { c.metrics = mm }
}

// New creates a Clusterer
func New(opts ...Option) *Clusterer {
	c := &Clusterer{
		threshold: DefaultThreshold,
		window:    DefaultWindow,
		newID:     newTimeOrderedID,
		logger:    interfaces.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Threshold returns the configured threshold
func (c *Clusterer) Threshold() float64 {
	return c.threshold
}

// Window returns the recency window length
func (c *Clusterer) Window() time.Duration {
	return c.window
}

// NewWindow creates an empty working set anchored at now
func (c *Clusterer) NewWindow(now time.Time) *Window {
	return NewWindow(now.Add(-c.window))
}

// Similarity scores two articles and reports which signal was used
func Similarity(a, b *domain.Article) (float64, Signal) {
	if a.HasEmbedding() && b.HasEmbedding() && len(a.Embedding) == len(b.Embedding) {
		return similarity.Cosine(a.Embedding, b.Embedding), SignalEmbedding
	}
	langs := languages(a.Language, b.Language)
	return similarity.Jaccard(text.TokenSet(a.Title, langs...), text.TokenSet(b.Title, langs...)), SignalTitle
}

func languages(a, b string) []string {
	var out []string
	if a != "" {
		out = append(out, a)
	}
	if b != "" && b != a {
		out = append(out, b)
	}
	return out
}

// Assign places article into the best matching candidate cluster of w, or a new one.
// The best match is the highest similarity at or above the threshold; equal
// similarity goes to the lowest cluster id. The article's ClusterID is set.
func (c *Clusterer) Assign(w *Window, article *domain.Article) Assignment {
	if existing, ok := w.Article(article.ID); ok && existing.ClusterID != "" {
		if _, loaded := w.Cluster(existing.ClusterID); loaded {
			article.ClusterID = existing.ClusterID
			w.add(article)
			return Assignment{ClusterID: existing.ClusterID}
		}
	}

	var (
		best      *slot
		bestScore float64
		bestSig   Signal
	)
	for _, s := range w.candidates() {
		rep := w.articles[s.rep]
		score, sig := Similarity(article, rep)
		if score < c.threshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && s.cluster.ID < best.cluster.ID) {
			best, bestScore, bestSig = s, score, sig
		}
	}

	idx := w.add(article)
	at := article.FetchedAt
	if at.IsZero() {
		at = article.PublishedAt
	}

	if best != nil {
		best.members[idx] = struct{}{}
		if best.cluster.AddMember(article.ID, at) {
			best.dirty = true
		}
		article.ClusterID = best.cluster.ID
		c.metrics.ClusterAssigned(false)
		c.logger.Debug("Article joined cluster", map[string]interface{}{
			"article_id": article.ID,
			"cluster_id": best.cluster.ID,
			"similarity": bestScore,
			"signal":     string(bestSig),
		})
		return Assignment{ClusterID: best.cluster.ID, Similarity: bestScore, Signal: bestSig}
	}

	sc := &domain.StoryCluster{
		ID:               c.newID(),
		RepresentativeID: article.ID,
		MemberIDs:        []string{article.ID},
		Category:         article.Category,
		CreatedAt:        at,
		UpdatedAt:        at,
	}
	w.clusters = append(w.clusters, &slot{
		cluster: sc,
		rep:     idx,
		members: map[int]struct{}{idx: {}},
		dirty:   true,
	})
	w.clusterIx[sc.ID] = len(w.clusters) - 1
	article.ClusterID = sc.ID
	c.metrics.ClusterAssigned(true)
	c.logger.Debug("Created cluster", map[string]interface{}{
		"article_id": article.ID,
		"cluster_id": sc.ID,
	})
	return Assignment{ClusterID: sc.ID, Created: true}
}
