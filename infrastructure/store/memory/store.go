// ABOUTME: In-memory record store for tests and single-process deployments
// ABOUTME: Returns copies so callers never alias stored records

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
)

var _ interfaces.Store = (*Store)(nil)

// Store implements interfaces.Store with maps guarded by a RWMutex
type Store struct {
	mu       sync.RWMutex
	sources  map[string]domain.Source
	articles map[string]domain.Article
	byURL    map[string]string
	clusters map[string]domain.StoryCluster
	health   map[string]domain.HealthRecord
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sources:  make(map[string]domain.Source),
		articles: make(map[string]domain.Article),
		byURL:    make(map[string]string),
		clusters: make(map[string]domain.StoryCluster),
		health:   make(map[string]domain.HealthRecord),
	}
}

// PutSource stores a source
func (s *Store) PutSource(ctx context.Context, src *domain.Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID] = *src
	return nil
}

// GetSource returns a source by id
func (s *Store) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[id]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "source", ID: id}
	}
	return &src, nil
}

// ListSources returns all sources ordered by id
func (s *Store) ListSources(ctx context.Context) ([]*domain.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Source, 0, len(s.sources))
	for _, src := range s.sources {
		src := src
		out = append(out, &src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutArticle stores an article and indexes its canonical URL
func (s *Store) PutArticle(ctx context.Context, article *domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[article.ID] = copyArticle(*article)
	s.byURL[article.CanonicalURL] = article.ID
	return nil
}

// GetArticle returns an article by id
func (s *Store) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "article", ID: id}
	}
	a = copyArticle(a)
	return &a, nil
}

// GetArticleByURL returns the article stored under a canonical URL
func (s *Store) GetArticleByURL(ctx context.Context, canonicalURL string) (*domain.Article, error) {
	s.mu.RLock()
	id, ok := s.byURL[canonicalURL]
	s.mu.RUnlock()
	if !ok {
		return nil, &errors.NotFoundError{Resource: "article", ID: canonicalURL}
	}
	return s.GetArticle(ctx, id)
}

// ListArticlesSince returns articles published at or after since, oldest first
func (s *Store) ListArticlesSince(ctx context.Context, since time.Time) ([]*domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Article, 0)
	for _, a := range s.articles {
		if a.PublishedAt.Before(since) {
			continue
		}
		a = copyArticle(a)
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.Before(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutCluster stores a cluster
func (s *Store) PutCluster(ctx context.Context, cluster *domain.StoryCluster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusters[cluster.ID] = copyCluster(*cluster)
	return nil
}

// GetCluster returns a cluster by id
func (s *Store) GetCluster(ctx context.Context, id string) (*domain.StoryCluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clusters[id]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "cluster", ID: id}
	}
	c = copyCluster(c)
	return &c, nil
}

// ListClustersSince returns clusters created at or after since, oldest first
func (s *Store) ListClustersSince(ctx context.Context, since time.Time) ([]*domain.StoryCluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.StoryCluster, 0)
	for _, c := range s.clusters {
		if c.CreatedAt.Before(since) {
			continue
		}
		c = copyCluster(c)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutHealth stores a health record
func (s *Store) PutHealth(ctx context.Context, record *domain.HealthRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health[record.SourceID] = *record
	return nil
}

// GetHealth returns the health record for a source
func (s *Store) GetHealth(ctx context.Context, sourceID string) (*domain.HealthRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.health[sourceID]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "health record", ID: sourceID}
	}
	return &rec, nil
}

// ListHealth returns all health records ordered by source id
func (s *Store) ListHealth(ctx context.Context) ([]*domain.HealthRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.HealthRecord, 0, len(s.health))
	for _, rec := range s.health {
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

func copyArticle(a domain.Article) domain.Article {
	if a.Keywords != nil {
		a.Keywords = append([]string(nil), a.Keywords...)
	}
	if a.Embedding != nil {
		a.Embedding = append([]float32(nil), a.Embedding...)
	}
	return a
}

func copyCluster(c domain.StoryCluster) domain.StoryCluster {
	c.MemberIDs = append([]string(nil), c.MemberIDs...)
	return c
}
