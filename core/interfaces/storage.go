// ABOUTME: Storage interfaces for the durable record store
// ABOUTME: Get/put/query access for sources, articles, clusters and health records

package interfaces

import (
	"context"
	"time"

	"digests-pipeline/core/domain"
)

// SourceStore persists Source records
type SourceStore interface {
	PutSource(ctx context.Context, src *domain.Source) error
	// GetSource returns a NotFoundError when the id is unknown
	GetSource(ctx context.Context, id string) (*domain.Source, error)
	// ListSources returns every source ordered by id
	ListSources(ctx context.Context) ([]*domain.Source, error)
}

// ArticleStore persists Article records
type ArticleStore interface {
	PutArticle(ctx context.Context, article *domain.Article) error
	GetArticle(ctx context.Context, id string) (*domain.Article, error)
	// GetArticleByURL looks up the canonical URL dedup key
	GetArticleByURL(ctx context.Context, canonicalURL string) (*domain.Article, error)
	// ListArticlesSince returns articles published at or after since, oldest first
	ListArticlesSince(ctx context.Context, since time.Time) ([]*domain.Article, error)
}

// ClusterStore persists StoryCluster records
type ClusterStore interface {
	PutCluster(ctx context.Context, cluster *domain.StoryCluster) error
	GetCluster(ctx context.Context, id string) (*domain.StoryCluster, error)
	// ListClustersSince returns clusters created at or after since, oldest first
	ListClustersSince(ctx context.Context, since time.Time) ([]*domain.StoryCluster, error)
}

// HealthStore persists HealthRecord records
type HealthStore interface {
	PutHealth(ctx context.Context, record *domain.HealthRecord) error
	GetHealth(ctx context.Context, sourceID string) (*domain.HealthRecord, error)
	// ListHealth returns every record ordered by source id
	ListHealth(ctx context.Context) ([]*domain.HealthRecord, error)
}

// Store is the full record store the pipeline requires.
// Read-your-own-writes within a run is assumed; multi-row transactions are not.
type Store interface {
	SourceStore
	ArticleStore
	ClusterStore
	HealthStore
}
