// ABOUTME: Redis record store keeping each record as a JSON string value
// ABOUTME: Sets and sorted sets index sources, articles by publish time and clusters by creation time

package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
)

var _ interfaces.Store = (*Store)(nil)

// Store implements interfaces.Store on a go-redis client
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore wraps client; every key is namespaced with prefix
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

// PutSource stores a source and adds it to the source set
func (s *Store) PutSource(ctx context.Context, src *domain.Source) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("source", src.ID), data, 0)
		pipe.SAdd(ctx, s.key("sources"), src.ID)
		return nil
	})
	return err
}

// GetSource returns a source by id
func (s *Store) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	var src domain.Source
	if err := s.getJSON(ctx, s.key("source", id), "source", id, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

// ListSources returns all sources ordered by id
func (s *Store) ListSources(ctx context.Context) ([]*domain.Source, error) {
	ids, err := s.client.SMembers(ctx, s.key("sources")).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	raw, err := s.mget(ctx, "source", ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Source, 0, len(raw))
	for _, data := range raw {
		var src domain.Source
		if err := json.Unmarshal(data, &src); err != nil {
			return nil, err
		}
		out = append(out, &src)
	}
	return out, nil
}

// PutArticle stores an article, its URL index entry and its publish-time score
func (s *Store) PutArticle(ctx context.Context, article *domain.Article) error {
	data, err := json.Marshal(article)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("article", article.ID), data, 0)
		pipe.Set(ctx, s.key("article", "url", article.CanonicalURL), article.ID, 0)
		pipe.ZAdd(ctx, s.key("articles", "published"), redis.Z{
			Score:  float64(article.PublishedAt.UnixMilli()),
			Member: article.ID,
		})
		return nil
	})
	return err
}

// GetArticle returns an article by id
func (s *Store) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	var a domain.Article
	if err := s.getJSON(ctx, s.key("article", id), "article", id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArticleByURL resolves the URL index then loads the article
func (s *Store) GetArticleByURL(ctx context.Context, canonicalURL string) (*domain.Article, error) {
	id, err := s.client.Get(ctx, s.key("article", "url", canonicalURL)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, &errors.NotFoundError{Resource: "article", ID: canonicalURL}
		}
		return nil, err
	}
	return s.GetArticle(ctx, id)
}

// ListArticlesSince returns articles published at or after since, oldest first
func (s *Store) ListArticlesSince(ctx context.Context, since time.Time) ([]*domain.Article, error) {
	ids, err := s.rangeSince(ctx, s.key("articles", "published"), since)
	if err != nil {
		return nil, err
	}
	raw, err := s.mget(ctx, "article", ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Article, 0, len(raw))
	for _, data := range raw {
		var a domain.Article
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		// millisecond scores are coarse; the exact bound is checked here
		if a.PublishedAt.Before(since) {
			continue
		}
		out = append(out, &a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.Before(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutCluster stores a cluster and its creation-time score
func (s *Store) PutCluster(ctx context.Context, cluster *domain.StoryCluster) error {
	data, err := json.Marshal(cluster)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("cluster", cluster.ID), data, 0)
		pipe.ZAdd(ctx, s.key("clusters", "created"), redis.Z{
			Score:  float64(cluster.CreatedAt.UnixMilli()),
			Member: cluster.ID,
		})
		return nil
	})
	return err
}

// GetCluster returns a cluster by id
func (s *Store) GetCluster(ctx context.Context, id string) (*domain.StoryCluster, error) {
	var c domain.StoryCluster
	if err := s.getJSON(ctx, s.key("cluster", id), "cluster", id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClustersSince returns clusters created at or after since, oldest first
func (s *Store) ListClustersSince(ctx context.Context, since time.Time) ([]*domain.StoryCluster, error) {
	ids, err := s.rangeSince(ctx, s.key("clusters", "created"), since)
	if err != nil {
		return nil, err
	}
	raw, err := s.mget(ctx, "cluster", ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.StoryCluster, 0, len(raw))
	for _, data := range raw {
		var c domain.StoryCluster
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		if c.CreatedAt.Before(since) {
			continue
		}
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutHealth stores a health record
func (s *Store) PutHealth(ctx context.Context, record *domain.HealthRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("health", record.SourceID), data, 0)
		pipe.SAdd(ctx, s.key("health"), record.SourceID)
		return nil
	})
	return err
}

// GetHealth returns the health record for a source
func (s *Store) GetHealth(ctx context.Context, sourceID string) (*domain.HealthRecord, error) {
	var r domain.HealthRecord
	if err := s.getJSON(ctx, s.key("health", sourceID), "health", sourceID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListHealth returns all health records ordered by source id
func (s *Store) ListHealth(ctx context.Context) ([]*domain.HealthRecord, error) {
	ids, err := s.client.SMembers(ctx, s.key("health")).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	raw, err := s.mget(ctx, "health", ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.HealthRecord, 0, len(raw))
	for _, data := range raw {
		var r domain.HealthRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, nil
}

func (s *Store) getJSON(ctx context.Context, key, resource, id string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return &errors.NotFoundError{Resource: resource, ID: id}
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// mget loads kind:<id> for every id, skipping ids whose value has vanished
func (s *Store) mget(ctx context.Context, kind string, ids []string) ([][]byte, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(kind, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, []byte(str))
	}
	return out, nil
}

func (s *Store) rangeSince(ctx context.Context, key string, since time.Time) ([]string, error) {
	return s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli()-1, 10),
		Max: "+inf",
	}).Result()
}
