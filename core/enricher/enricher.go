// ABOUTME: ContentEnricher adds quality score, keywords, language and embeddings to articles
// ABOUTME: AI results are best-effort; the deterministic path always produces a complete article

package enricher

import (
	"context"
	"time"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/pkg/metrics"
)

const (
	// DefaultAITimeout bounds each annotation and embedding call
	DefaultAITimeout = 5 * time.Second

	// DefaultCacheTTL is how long AI results stay cached by content hash
	DefaultCacheTTL = 7 * 24 * time.Hour
)

// Enricher is a pure transform apart from its AI calls; it never touches sources or health
type Enricher struct {
	vocab       *Vocabulary
	maxKeywords int

	deterministic KeywordStrategy
	ai            KeywordStrategy

	annotator    interfaces.Annotator
	aiTimeout    time.Duration
	embedder     interfaces.Embedder
	embedTimeout time.Duration

	cache    interfaces.Cache
	cacheTTL time.Duration
	results  *resultCache

	detector Detector
	logger   interfaces.Logger
	metrics  *metrics.Manager
}

// Option configures an Enricher
type Option func(*Enricher)

// WithVocabulary replaces the default controlled vocabulary
func WithVocabulary(v *Vocabulary) Option {
	return func(e *Enricher) { e.vocab = v }
}

// WithMaxKeywords caps the keyword set size
func WithMaxKeywords(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.maxKeywords = n
		}
	}
}

// WithAnnotator enables AI keywords and summaries
func WithAnnotator(a interfaces.Annotator, timeout time.Duration) Option {
	return func(e *Enricher) {
		e.annotator = a
		if timeout > 0 {
			e.aiTimeout = timeout
		}
	}
}

// WithEmbedder enables embeddings
func WithEmbedder(emb interfaces.Embedder, timeout time.Duration) Option {
	return func(e *Enricher) {
		e.embedder = emb
		if timeout > 0 {
			e.embedTimeout = timeout
		}
	}
}

// WithCache caches AI results by content hash
func WithCache(c interfaces.Cache, ttl time.Duration) Option {
	return func(e *Enricher) {
		e.cache = c
		if ttl > 0 {
			e.cacheTTL = ttl
		}
	}
}

// WithDetector enables language detection for articles without a declared language
func WithDetector(d Detector) Option {
	return func(e *Enricher) { e.detector = d }
}

// WithLogger sets the logger
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Enricher) { e.logger = logger }
}

// WithMetrics counts fallbacks
func WithMetrics(mm *metrics.Manager) Option {
	return func(e *Enricher) { e.metrics = mm }
}

// New creates an Enricher. With no AI options it is fully deterministic.
func New(opts ...Option) *Enricher {
	e := &Enricher{
		maxKeywords:  DefaultMaxKeywords,
		aiTimeout:    DefaultAITimeout,
		embedTimeout: DefaultAITimeout,
		cacheTTL:     DefaultCacheTTL,
		logger:       interfaces.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.vocab == nil {
		e.vocab = DefaultVocabulary()
	}
	e.deterministic = NewVocabularyStrategy(e.vocab, e.maxKeywords)
	if e.annotator != nil {
		e.ai = NewAIStrategy(e.annotator, e.aiTimeout, e.maxKeywords, e.cache, e.cacheTTL)
	}
	if e.cache != nil {
		e.results = &resultCache{cache: e.cache, ttl: e.cacheTTL}
	}
	return e
}

// Enrich returns an enriched copy of article. AI failures are logged and absorbed.
func (e *Enricher) Enrich(ctx context.Context, article domain.Article) domain.Article {
	out := e.EnrichDeterministic(article)

	if e.ai != nil {
		ann, err := e.ai.Annotate(ctx, &out)
		if err != nil {
			e.metrics.EnrichmentFallback("annotation")
			e.logger.Debug("AI annotation unavailable, keeping vocabulary keywords", map[string]interface{}{
				"article_id": out.ID,
				"error":      err.Error(),
			})
		} else {
			out.Keywords = ann.Keywords
			out.KeywordSource = ann.Source
			out.Summary = ann.Summary
		}
	}

	if e.embedder != nil {
		vec, err := e.embed(ctx, &out)
		if err != nil {
			e.metrics.EnrichmentFallback("embedding")
			e.logger.Debug("Embedding unavailable, clustering will use title similarity", map[string]interface{}{
				"article_id": out.ID,
				"error":      err.Error(),
			})
		} else {
			out.Embedding = vec
		}
	}

	return out
}

// EnrichDeterministic computes language, keywords and quality without any external call
func (e *Enricher) EnrichDeterministic(article domain.Article) domain.Article {
	out := article
	out.Keywords = append([]string(nil), article.Keywords...)

	if out.Language == "" && e.detector != nil {
		if lang, ok := e.detector.Detect(out.Text()); ok {
			out.Language = lang
		}
	}

	ann, _ := e.deterministic.Annotate(context.Background(), &out)
	out.Keywords = ann.Keywords
	out.KeywordSource = ann.Source
	out.Summary = ""
	out.Embedding = nil

	out.QualityScore = Quality(&out).Score
	return out
}

func (e *Enricher) embed(ctx context.Context, article *domain.Article) ([]float32, error) {
	key := embeddingKeyPrefix + contentHash(article)

	var cached []float32
	if e.results.get(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.embedTimeout)
	defer cancel()

	vectors, err := e.embedder.Embed(ctx, []string{article.Text()})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, errEmptyEmbedding
	}

	e.results.set(ctx, key, vectors[0])
	return vectors[0], nil
}
