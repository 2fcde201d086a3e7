package enricher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/interfaces"
)

func sampleArticle() domain.Article {
	return domain.Article{
		ID:       "a1",
		Title:    "Central Bank Raises Rates",
		Body:     "The central bank raised interest rates by a quarter point on Thursday.",
		Language: "en",
		ImageURL: "https://img.example.com/bank.jpg",
	}
}

func TestEnrich_DeterministicOnly(t *testing.T) {
	e := New()

	in := sampleArticle()
	out := e.Enrich(context.Background(), in)

	assert.Equal(t, domain.KeywordsFromVocabulary, out.KeywordSource)
	assert.Contains(t, out.Keywords, "central bank")
	assert.Contains(t, out.Keywords, "interest rates")
	assert.Greater(t, out.QualityScore, 0.0)
	assert.Nil(t, out.Embedding)
	assert.Empty(t, in.Keywords, "input must not be mutated")
}

func TestEnrich_AISupersedesVocabulary(t *testing.T) {
	annotator := &mockAnnotator{
		annotate: func(ctx context.Context, req interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error) {
			assert.Equal(t, "Central Bank Raises Rates", req.Title)
			assert.Equal(t, 3, req.MaxKeywords)
			return &interfaces.AnnotationResponse{
				Keywords: []string{"Monetary Policy", "monetary policy", " rates "},
				Summary:  "Rates went up.",
			}, nil
		},
	}
	e := New(WithAnnotator(annotator, time.Second), WithMaxKeywords(3))

	out := e.Enrich(context.Background(), sampleArticle())

	assert.Equal(t, domain.KeywordsFromAI, out.KeywordSource)
	assert.Equal(t, []string{"monetary policy", "rates"}, out.Keywords)
	assert.Equal(t, "Rates went up.", out.Summary)
}

func TestEnrich_AIFailureKeepsDeterministicResult(t *testing.T) {
	deterministic := New().Enrich(context.Background(), sampleArticle())

	tests := []struct {
		name     string
		annotate func(ctx context.Context, req interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error)
	}{
		{
			name: "error",
			annotate: func(context.Context, interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error) {
				return nil, errors.New("upstream 500")
			},
		},
		{
			name: "timeout",
			annotate: func(ctx context.Context, _ interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
		{
			name: "empty keywords",
			annotate: func(context.Context, interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error) {
				return &interfaces.AnnotationResponse{Keywords: []string{" "}, Summary: "ignored"}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithAnnotator(&mockAnnotator{annotate: tt.annotate}, 20*time.Millisecond))

			start := time.Now()
			out := e.Enrich(context.Background(), sampleArticle())

			assert.Less(t, time.Since(start), 2*time.Second)
			assert.Equal(t, deterministic, out)
		})
	}
}

func TestEnrich_Embedding(t *testing.T) {
	embedder := &mockEmbedder{
		embed: func(_ context.Context, texts []string) ([][]float32, error) {
			require.Len(t, texts, 1)
			assert.Contains(t, texts[0], "Central Bank Raises Rates")
			return [][]float32{{0.1, 0.2, 0.3}}, nil
		},
	}
	e := New(WithEmbedder(embedder, time.Second))

	out := e.Enrich(context.Background(), sampleArticle())
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, out.Embedding)
}

func TestEnrich_EmbeddingFailureLeavesNoVector(t *testing.T) {
	for name, embed := range map[string]func(context.Context, []string) ([][]float32, error){
		"error":  func(context.Context, []string) ([][]float32, error) { return nil, errors.New("down") },
		"empty":  func(context.Context, []string) ([][]float32, error) { return [][]float32{}, nil },
		"zero d": func(context.Context, []string) ([][]float32, error) { return [][]float32{{}}, nil },
	} {
		t.Run(name, func(t *testing.T) {
			e := New(WithEmbedder(&mockEmbedder{embed: embed}, time.Second))
			out := e.Enrich(context.Background(), sampleArticle())
			assert.False(t, out.HasEmbedding())
			assert.Greater(t, out.QualityScore, 0.0)
		})
	}
}

func TestEnrich_CachesAIResultsByContent(t *testing.T) {
	annotator := &mockAnnotator{
		annotate: func(context.Context, interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error) {
			return &interfaces.AnnotationResponse{Keywords: []string{"rates"}}, nil
		},
	}
	embedder := &mockEmbedder{
		embed: func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		},
	}
	cache := newMockCache()
	e := New(WithAnnotator(annotator, time.Second), WithEmbedder(embedder, time.Second), WithCache(cache, time.Hour))

	first := e.Enrich(context.Background(), sampleArticle())
	second := e.Enrich(context.Background(), sampleArticle())

	assert.Equal(t, first, second)
	assert.Equal(t, 1, annotator.Calls())
	assert.Equal(t, 1, embedder.calls)
	assert.Len(t, cache.data, 2)

	changed := sampleArticle()
	changed.Body = "Different body text entirely."
	e.Enrich(context.Background(), changed)
	assert.Equal(t, 2, annotator.Calls())
}

func TestEnrichDeterministic_DetectsMissingLanguage(t *testing.T) {
	e := New(WithDetector(stubDetector{lang: "de"}))

	a := sampleArticle()
	a.Language = ""
	out := e.EnrichDeterministic(a)
	assert.Equal(t, "de", out.Language)

	a.Language = "fr"
	out = e.EnrichDeterministic(a)
	assert.Equal(t, "fr", out.Language, "declared language wins")
}

func TestLinguaDetector(t *testing.T) {
	d := NewLinguaDetector()

	lang, ok := d.Detect("The central bank raised interest rates again on Thursday, surprising many economists.")
	require.True(t, ok)
	assert.Equal(t, "en", lang)

	lang, ok = d.Detect("Die Zentralbank hat die Leitzinsen am Donnerstag erneut angehoben.")
	require.True(t, ok)
	assert.Equal(t, "de", lang)

	_, ok = d.Detect("   ")
	assert.False(t, ok)
}
