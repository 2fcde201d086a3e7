// ABOUTME: Brute-force in-memory vector index using cosine similarity
// ABOUTME: Adequate for the clustering window; swap for an ANN service when the corpus grows

package memory

import (
	"context"
	"sort"
	"sync"

	"digests-pipeline/core/interfaces"
	"digests-pipeline/pkg/utils/similarity"
)

var _ interfaces.VectorIndex = (*Index)(nil)

// Index stores one vector per id
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{vectors: make(map[string][]float32)}
}

// Upsert stores a copy of vector under id; an empty vector removes the id
func (x *Index) Upsert(ctx context.Context, id string, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(vector) == 0 {
		delete(x.vectors, id)
		return nil
	}
	x.vectors[id] = append([]float32(nil), vector...)
	return nil
}

// Search returns the k most similar ids, highest score first, ties by id
func (x *Index) Search(ctx context.Context, vector []float32, k int) ([]interfaces.VectorMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	x.mu.RLock()
	matches := make([]interfaces.VectorMatch, 0, len(x.vectors))
	for id, v := range x.vectors {
		if len(v) != len(vector) {
			continue
		}
		matches = append(matches, interfaces.VectorMatch{ID: id, Score: similarity.Cosine(vector, v)})
	}
	x.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of stored vectors
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}
