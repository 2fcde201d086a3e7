// ABOUTME: FeedRanker scores articles for a user and orders them with a diversity pass
// ABOUTME: Pure function of its inputs; safe to call concurrently per request

package ranker

import (
	"math"
	"sort"
	"strings"
	"time"

	"digests-pipeline/core/domain"
)

const (
	DefaultRecencyWeight  = 0.45
	DefaultQualityWeight  = 0.35
	DefaultAffinityWeight = 0.20

	// DefaultHalfLife is the age at which the recency signal halves
	DefaultHalfLife = 6 * time.Hour

	// DefaultDiversityPenalty multiplies the score of a repeated story
	DefaultDiversityPenalty = 0.5
)

// Weights are the coefficients of the normalized signals
type Weights struct {
	Recency  float64
	Quality  float64
	Affinity float64
}

// DefaultWeights returns the default coefficients
func DefaultWeights() Weights {
	return Weights{Recency: DefaultRecencyWeight, Quality: DefaultQualityWeight, Affinity: DefaultAffinityWeight}
}

// Ranker orders candidate articles. It holds configuration only.
type Ranker struct {
	weights  Weights
	halfLife time.Duration
	penalty  float64
	now      func() time.Time
}

// Option configures a Ranker
type Option func(*Ranker)

// WithWeights replaces the signal weights
func WithWeights(w Weights) Option {
	return func(r *Ranker) { r.weights = w }
}

// WithHalfLife sets the recency half-life
func WithHalfLife(d time.Duration) Option {
	return func(r *Ranker) {
		if d > 0 {
			r.halfLife = d
		}
	}
}

// WithDiversityPenalty sets the factor in [0,1] applied to a story's later members
func WithDiversityPenalty(factor float64) Option {
	return func(r *Ranker) {
		if factor >= 0 && factor <= 1 {
			r.penalty = factor
		}
	}
}

// WithClock sets the clock used when the user context carries no time
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) { r.now = now }
}

// New creates a Ranker
func New(opts ...Option) *Ranker {
	r := &Ranker{
		weights:  DefaultWeights(),
		halfLife: DefaultHalfLife,
		penalty:  DefaultDiversityPenalty,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recency is exp(-ln2 * age / halfLife); future publish times count as age zero
func (r *Ranker) Recency(published, now time.Time) float64 {
	age := now.Sub(published)
	if age < 0 {
		age = 0
	}
	return math.Exp(-math.Ln2 * float64(age) / float64(r.halfLife))
}

// Affinity is the stronger of the user's category weight and keyword overlap
func Affinity(a *domain.Article, user domain.UserContext) float64 {
	aff := user.CategoryAffinity(a.Category)
	if overlap := keywordOverlap(a.Keywords, user.Keywords); overlap > aff {
		aff = overlap
	}
	return aff
}

// keywordOverlap is the number of shared keywords over the smaller set
func keywordOverlap(articleKW, userKW []string) float64 {
	if len(articleKW) == 0 || len(userKW) == 0 {
		return 0
	}
	wanted := make(map[string]struct{}, len(userKW))
	for _, k := range userKW {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			wanted[k] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return 0
	}
	matched := 0
	seen := make(map[string]struct{}, len(articleKW))
	for _, k := range articleKW {
		k = strings.ToLower(k)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := wanted[k]; ok {
			matched++
		}
	}
	denom := len(wanted)
	if len(seen) < denom {
		denom = len(seen)
	}
	return float64(matched) / float64(denom)
}

// Score is the raw weighted score before the diversity pass
func (r *Ranker) Score(a *domain.Article, user domain.UserContext, now time.Time) float64 {
	return r.weights.Recency*r.Recency(a.PublishedAt, now) +
		r.weights.Quality*clamp01(a.QualityScore) +
		r.weights.Affinity*Affinity(a, user)
}

type candidate struct {
	article   *domain.Article
	score     float64
	penalized bool
}

// less orders by score desc, publish time desc, id asc
func less(a, b *candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if !a.article.PublishedAt.Equal(b.article.PublishedAt) {
		return a.article.PublishedAt.After(b.article.PublishedAt)
	}
	return a.article.ID < b.article.ID
}

// Rank scores candidates and returns the full ordering. A later member of a story whose
// cluster has already been emitted is discounted once by the penalty factor and
// re-inserted at its new position; the rest of the order is left as sorted.
func (r *Ranker) Rank(candidates []domain.Article, user domain.UserContext) []domain.FeedEntry {
	now := user.Now
	if now.IsZero() {
		now = r.now()
	}

	pending := make([]*candidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for i := range candidates {
		a := &candidates[i]
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		pending = append(pending, &candidate{article: a, score: r.Score(a, user, now)})
	}
	sort.SliceStable(pending, func(i, j int) bool { return less(pending[i], pending[j]) })

	out := make([]domain.FeedEntry, 0, len(pending))
	emitted := make(map[string]struct{})
	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]

		cluster := c.article.ClusterID
		if _, repeat := emitted[cluster]; repeat && cluster != "" && !c.penalized {
			c.score *= r.penalty
			c.penalized = true
			at := sort.Search(len(pending), func(i int) bool { return less(c, pending[i]) })
			pending = append(pending, nil)
			copy(pending[at+1:], pending[at:])
			pending[at] = c
			continue
		}

		if cluster != "" {
			emitted[cluster] = struct{}{}
		}
		out = append(out, domain.FeedEntry{
			ArticleID: c.article.ID,
			ClusterID: cluster,
			Score:     c.score,
			Rank:      len(out) + 1,
		})
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
