package feed

import (
	"context"

	"digests-pipeline/core/interfaces"
)

// mockIndex is a mock implementation of interfaces.VectorIndex
type mockIndex struct {
	upsertFunc func(ctx context.Context, id string, vector []float32) error
	searchFunc func(ctx context.Context, vector []float32, k int) ([]interfaces.VectorMatch, error)
}

func (m *mockIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, id, vector)
	}
	return nil
}

func (m *mockIndex) Search(ctx context.Context, vector []float32, k int) ([]interfaces.VectorMatch, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, vector, k)
	}
	return nil, nil
}

// mockLogger is a mock implementation of interfaces.Logger
type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Debug(msg string, fields map[string]interface{}) {}
func (m *mockLogger) Info(msg string, fields map[string]interface{})  {}
func (m *mockLogger) Warn(msg string, fields map[string]interface{}) {
	m.warnings = append(m.warnings, msg)
}
func (m *mockLogger) Error(msg string, fields map[string]interface{}) {}
