// ABOUTME: Keyword and summary strategies used by the enricher
// ABOUTME: Vocabulary matching always works; the AI strategy falls back to it

package enricher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/interfaces"
)

// Annotation is a keyword set plus optional summary produced by a strategy
type Annotation struct {
	Keywords []string
	Summary  string
	Source   domain.KeywordSource
}

// KeywordStrategy produces keywords for an article
type KeywordStrategy interface {
	Annotate(ctx context.Context, article *domain.Article) (*Annotation, error)
}

// VocabularyStrategy matches against a controlled vocabulary, falling back to term frequency
// when no label matches. It never fails.
type VocabularyStrategy struct {
	vocab *Vocabulary
	limit int
}

// NewVocabularyStrategy creates the deterministic strategy
func NewVocabularyStrategy(vocab *Vocabulary, limit int) *VocabularyStrategy {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}
	return &VocabularyStrategy{vocab: vocab, limit: limit}
}

// Annotate implements KeywordStrategy
func (s *VocabularyStrategy) Annotate(_ context.Context, article *domain.Article) (*Annotation, error) {
	keywords := s.vocab.Match(article.Title, article.Body, s.limit)
	if len(keywords) == 0 {
		keywords = FrequentTerms(article.Title, article.Body, s.limit, article.Language)
	}
	return &Annotation{Keywords: keywords, Source: domain.KeywordsFromVocabulary}, nil
}

// AIStrategy asks the external annotator, bounded by a timeout
type AIStrategy struct {
	annotator interfaces.Annotator
	timeout   time.Duration
	limit     int
	cache     *resultCache
}

// NewAIStrategy creates the AI-backed strategy; cache may be nil
func NewAIStrategy(annotator interfaces.Annotator, timeout time.Duration, limit int, cache interfaces.Cache, ttl time.Duration) *AIStrategy {
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}
	s := &AIStrategy{annotator: annotator, timeout: timeout, limit: limit}
	if cache != nil {
		s.cache = &resultCache{cache: cache, ttl: ttl}
	}
	return s
}

// Annotate implements KeywordStrategy. An empty keyword set is an error so callers fall back.
func (s *AIStrategy) Annotate(ctx context.Context, article *domain.Article) (*Annotation, error) {
	hash := contentHash(article)

	var cached interfaces.AnnotationResponse
	if s.cache.get(ctx, annotationKeyPrefix+hash, &cached) && len(cached.Keywords) > 0 {
		return s.toAnnotation(&cached), nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.annotator.Annotate(ctx, interfaces.AnnotationRequest{
		Title:       article.Title,
		Body:        article.Body,
		Language:    article.Language,
		MaxKeywords: s.limit,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(cleanKeywords(resp.Keywords, s.limit)) == 0 {
		return nil, fmt.Errorf("annotator returned no keywords")
	}

	s.cache.set(ctx, annotationKeyPrefix+hash, resp)
	return s.toAnnotation(resp), nil
}

func (s *AIStrategy) toAnnotation(resp *interfaces.AnnotationResponse) *Annotation {
	return &Annotation{
		Keywords: cleanKeywords(resp.Keywords, s.limit),
		Summary:  strings.TrimSpace(resp.Summary),
		Source:   domain.KeywordsFromAI,
	}
}

// cleanKeywords lower-cases, trims and de-duplicates, keeping the annotator's order
func cleanKeywords(in []string, limit int) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
		if len(out) == limit {
			break
		}
	}
	return out
}
