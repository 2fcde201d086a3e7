package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"digests-pipeline/core/interfaces"
)

// mockHTTPClient serves feed documents from getFunc
type mockHTTPClient struct {
	getFunc func(ctx context.Context, url string) (interfaces.Response, error)
}

func (m *mockHTTPClient) Get(ctx context.Context, url string, _ ...interfaces.RequestOption) (interfaces.Response, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, url)
	}
	return nil, nil
}

func (m *mockHTTPClient) Post(context.Context, string, io.Reader, ...interfaces.RequestOption) (interfaces.Response, error) {
	return nil, nil
}

// mockResponse is a mock implementation of interfaces.Response
type mockResponse struct {
	statusCode int
	body       string
}

func (m *mockResponse) StatusCode() int {
	return m.statusCode
}

func (m *mockResponse) Body() io.ReadCloser {
	return io.NopCloser(strings.NewReader(m.body))
}

func (m *mockResponse) Header(string) string {
	return ""
}

// mockRunner counts Run calls and returns runFunc's result
type mockRunner struct {
	calls   int32
	runFunc func(ctx context.Context) (*RunSummary, error)
}

func (m *mockRunner) Run(ctx context.Context) (*RunSummary, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return &RunSummary{}, nil
}

func (m *mockRunner) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

// recordingLogger keeps messages by level
type recordingLogger struct {
	mu      sync.Mutex
	entries map[string][]string
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{entries: make(map[string][]string)}
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[level] = append(l.entries[level], msg)
}

func (l *recordingLogger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries[level]...)
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.record("error", msg) }

// mockEmbedder is a mock implementation of interfaces.Embedder
type mockEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	return nil, nil
}

// mockIndex records upserted vectors
type mockIndex struct {
	mu      sync.Mutex
	vectors map[string][]float32
}

func newMockIndex() *mockIndex {
	return &mockIndex{vectors: make(map[string][]float32)}
}

func (m *mockIndex) Upsert(_ context.Context, id string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[id] = vector
	return nil
}

func (m *mockIndex) Search(context.Context, []float32, int) ([]interfaces.VectorMatch, error) {
	return nil, nil
}

func (m *mockIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vectors)
}
