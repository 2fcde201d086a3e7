// ABOUTME: Content-hash cache for AI annotations and embeddings
// ABOUTME: Entries are JSON values under enrich: prefixed keys

package enricher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/interfaces"
)

const (
	annotationKeyPrefix = "enrich:annotation:"
	embeddingKeyPrefix  = "enrich:embedding:"
)

// resultCache stores AI results by content hash. A nil *resultCache is a no-op.
type resultCache struct {
	cache interfaces.Cache
	ttl   time.Duration
}

func (c *resultCache) get(ctx context.Context, key string, v interface{}) bool {
	if c == nil || c.cache == nil {
		return false
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *resultCache) set(ctx context.Context, key string, v interface{}) {
	if c == nil || c.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.cache.Set(ctx, key, data, c.ttl)
}

// contentHash identifies the text an AI result was computed from
func contentHash(a *domain.Article) string {
	h := sha256.New()
	h.Write([]byte(a.Language))
	h.Write([]byte{0})
	h.Write([]byte(a.Title))
	h.Write([]byte{0})
	h.Write([]byte(a.Body))
	return hex.EncodeToString(h.Sum(nil))
}

var errEmptyEmbedding = errors.New("embedder returned no vector")
