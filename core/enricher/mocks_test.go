package enricher

import (
	"context"
	"sync"
	"time"

	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
)

// mockAnnotator is a mock implementation of interfaces.Annotator
type mockAnnotator struct {
	mu       sync.Mutex
	calls    int
	annotate func(ctx context.Context, req interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error)
}

func (m *mockAnnotator) Annotate(ctx context.Context, req interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.annotate != nil {
		return m.annotate(ctx, req)
	}
	return &interfaces.AnnotationResponse{}, nil
}

func (m *mockAnnotator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEmbedder is a mock implementation of interfaces.Embedder
type mockEmbedder struct {
	mu    sync.Mutex
	calls int
	embed func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embed != nil {
		return m.embed(ctx, texts)
	}
	return nil, nil
}

// mockCache is a map-backed interfaces.Cache
type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// stubDetector always reports the same language
type stubDetector struct {
	lang string
}

func (s stubDetector) Detect(string) (string, bool) {
	return s.lang, s.lang != ""
}
