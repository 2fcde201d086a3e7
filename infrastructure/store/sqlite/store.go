// ABOUTME: SQLite record store for single-node deployments that must survive restarts
// ABOUTME: Queries are built with squirrel; list-valued fields are stored as JSON text

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
)

var _ interfaces.Store = (*Store)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		feed_url TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 0,
		health TEXT NOT NULL DEFAULT '',
		last_fetched_at INTEGER NOT NULL DEFAULT 0,
		consecutive_failures INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL DEFAULT '',
		canonical_url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		published_at INTEGER NOT NULL,
		fetched_at INTEGER NOT NULL DEFAULT 0,
		keywords TEXT NOT NULL DEFAULT '[]',
		keyword_source TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		quality_score REAL NOT NULL DEFAULT 0,
		embedding TEXT NOT NULL DEFAULT '[]',
		cluster_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(canonical_url);
	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
	CREATE TABLE IF NOT EXISTS clusters (
		id TEXT PRIMARY KEY,
		representative_id TEXT NOT NULL,
		member_ids TEXT NOT NULL DEFAULT '[]',
		category TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_clusters_created ON clusters(created_at);
	CREATE TABLE IF NOT EXISTS health (
		source_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		consecutive_failures INTEGER NOT NULL DEFAULT 0,
		last_success_at INTEGER NOT NULL DEFAULT 0,
		last_failure_at INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		last_reason TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL DEFAULT 0
	);
`

var (
	sourceColumns  = []string{"id", "feed_url", "category", "country", "language", "enabled", "health", "last_fetched_at", "consecutive_failures"}
	articleColumns = []string{"id", "source_id", "canonical_url", "title", "body", "image_url", "author", "category", "language", "published_at", "fetched_at", "keywords", "keyword_source", "summary", "quality_score", "embedding", "cluster_id"}
	clusterColumns = []string{"id", "representative_id", "member_ids", "category", "created_at", "updated_at"}
	healthColumns  = []string{"source_id", "state", "consecutive_failures", "last_success_at", "last_failure_at", "last_error", "last_reason", "updated_at"}
)

// Store implements interfaces.Store on SQLite
type Store struct {
	db       *sql.DB
	filePath string
}

// NewStore opens (or creates) the database at filePath and applies the schema
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = "digests.db"
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// each connection to :memory: is a separate database
	if filePath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	s := &Store{db: db, filePath: filePath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// PutSource inserts or replaces a source
func (s *Store) PutSource(ctx context.Context, src *domain.Source) error {
	q := sq.Replace("sources").Columns(sourceColumns...).Values(
		src.ID, src.FeedURL, src.Category, src.Country, src.Language,
		src.Enabled, string(src.Health), toNanos(src.LastFetchedAt), src.ConsecutiveFailures,
	)
	return s.exec(ctx, q)
}

// GetSource returns a source by id
func (s *Store) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	q := sq.Select(sourceColumns...).From("sources").Where(sq.Eq{"id": id})
	list, err := s.querySources(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &errors.NotFoundError{Resource: "source", ID: id}
	}
	return list[0], nil
}

// ListSources returns all sources ordered by id
func (s *Store) ListSources(ctx context.Context) ([]*domain.Source, error) {
	return s.querySources(ctx, sq.Select(sourceColumns...).From("sources").OrderBy("id"))
}

func (s *Store) querySources(ctx context.Context, q sq.SelectBuilder) ([]*domain.Source, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Source, 0)
	for rows.Next() {
		var (
			src         domain.Source
			health      string
			lastFetched int64
		)
		if err := rows.Scan(&src.ID, &src.FeedURL, &src.Category, &src.Country, &src.Language,
			&src.Enabled, &health, &lastFetched, &src.ConsecutiveFailures); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.Health = domain.HealthState(health)
		src.LastFetchedAt = fromNanos(lastFetched)
		out = append(out, &src)
	}
	return out, rows.Err()
}

// PutArticle inserts or replaces an article
func (s *Store) PutArticle(ctx context.Context, a *domain.Article) error {
	keywords, err := marshalList(a.Keywords)
	if err != nil {
		return err
	}
	embedding, err := marshalList(a.Embedding)
	if err != nil {
		return err
	}

	q := sq.Replace("articles").Columns(articleColumns...).Values(
		a.ID, a.SourceID, a.CanonicalURL, a.Title, a.Body, a.ImageURL, a.Author,
		a.Category, a.Language, toNanos(a.PublishedAt), toNanos(a.FetchedAt),
		keywords, string(a.KeywordSource), a.Summary, a.QualityScore, embedding, a.ClusterID,
	)
	return s.exec(ctx, q)
}

// GetArticle returns an article by id
func (s *Store) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	return s.getArticle(ctx, sq.Eq{"id": id}, id)
}

// GetArticleByURL returns the article stored under a canonical URL
func (s *Store) GetArticleByURL(ctx context.Context, canonicalURL string) (*domain.Article, error) {
	return s.getArticle(ctx, sq.Eq{"canonical_url": canonicalURL}, canonicalURL)
}

func (s *Store) getArticle(ctx context.Context, pred sq.Eq, id string) (*domain.Article, error) {
	list, err := s.queryArticles(ctx, sq.Select(articleColumns...).From("articles").Where(pred).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &errors.NotFoundError{Resource: "article", ID: id}
	}
	return list[0], nil
}

// ListArticlesSince returns articles published at or after since, oldest first
func (s *Store) ListArticlesSince(ctx context.Context, since time.Time) ([]*domain.Article, error) {
	q := sq.Select(articleColumns...).From("articles").
		Where(sq.GtOrEq{"published_at": toNanos(since)}).
		OrderBy("published_at", "id")
	return s.queryArticles(ctx, q)
}

func (s *Store) queryArticles(ctx context.Context, q sq.SelectBuilder) ([]*domain.Article, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Article, 0)
	for rows.Next() {
		var (
			a                   domain.Article
			published, fetched  int64
			keywords, embedding string
			keywordSource       string
		)
		if err := rows.Scan(&a.ID, &a.SourceID, &a.CanonicalURL, &a.Title, &a.Body, &a.ImageURL,
			&a.Author, &a.Category, &a.Language, &published, &fetched, &keywords, &keywordSource,
			&a.Summary, &a.QualityScore, &embedding, &a.ClusterID); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.PublishedAt = fromNanos(published)
		a.FetchedAt = fromNanos(fetched)
		a.KeywordSource = domain.KeywordSource(keywordSource)
		if err := unmarshalList(keywords, &a.Keywords); err != nil {
			return nil, err
		}
		if err := unmarshalList(embedding, &a.Embedding); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// PutCluster inserts or replaces a cluster
func (s *Store) PutCluster(ctx context.Context, c *domain.StoryCluster) error {
	members, err := marshalList(c.MemberIDs)
	if err != nil {
		return err
	}
	q := sq.Replace("clusters").Columns(clusterColumns...).Values(
		c.ID, c.RepresentativeID, members, c.Category, toNanos(c.CreatedAt), toNanos(c.UpdatedAt),
	)
	return s.exec(ctx, q)
}

// GetCluster returns a cluster by id
func (s *Store) GetCluster(ctx context.Context, id string) (*domain.StoryCluster, error) {
	list, err := s.queryClusters(ctx, sq.Select(clusterColumns...).From("clusters").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &errors.NotFoundError{Resource: "cluster", ID: id}
	}
	return list[0], nil
}

// ListClustersSince returns clusters created at or after since, oldest first
func (s *Store) ListClustersSince(ctx context.Context, since time.Time) ([]*domain.StoryCluster, error) {
	q := sq.Select(clusterColumns...).From("clusters").
		Where(sq.GtOrEq{"created_at": toNanos(since)}).
		OrderBy("created_at", "id")
	return s.queryClusters(ctx, q)
}

func (s *Store) queryClusters(ctx context.Context, q sq.SelectBuilder) ([]*domain.StoryCluster, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.StoryCluster, 0)
	for rows.Next() {
		var (
			c                domain.StoryCluster
			members          string
			created, updated int64
		)
		if err := rows.Scan(&c.ID, &c.RepresentativeID, &members, &c.Category, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		if err := unmarshalList(members, &c.MemberIDs); err != nil {
			return nil, err
		}
		c.CreatedAt = fromNanos(created)
		c.UpdatedAt = fromNanos(updated)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// PutHealth inserts or replaces a health record
func (s *Store) PutHealth(ctx context.Context, r *domain.HealthRecord) error {
	q := sq.Replace("health").Columns(healthColumns...).Values(
		r.SourceID, string(r.State), r.ConsecutiveFailures, toNanos(r.LastSuccessAt),
		toNanos(r.LastFailureAt), r.LastError, string(r.LastReason), toNanos(r.UpdatedAt),
	)
	return s.exec(ctx, q)
}

// GetHealth returns the health record for a source
func (s *Store) GetHealth(ctx context.Context, sourceID string) (*domain.HealthRecord, error) {
	list, err := s.queryHealth(ctx, sq.Select(healthColumns...).From("health").Where(sq.Eq{"source_id": sourceID}))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &errors.NotFoundError{Resource: "health", ID: sourceID}
	}
	return list[0], nil
}

// ListHealth returns all health records ordered by source id
func (s *Store) ListHealth(ctx context.Context) ([]*domain.HealthRecord, error) {
	return s.queryHealth(ctx, sq.Select(healthColumns...).From("health").OrderBy("source_id"))
}

func (s *Store) queryHealth(ctx context.Context, q sq.SelectBuilder) ([]*domain.HealthRecord, error) {
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.HealthRecord, 0)
	for rows.Next() {
		var (
			r                         domain.HealthRecord
			state, reason             string
			success, failure, updated int64
		)
		if err := rows.Scan(&r.SourceID, &state, &r.ConsecutiveFailures, &success, &failure,
			&r.LastError, &reason, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan health: %w", err)
		}
		r.State = domain.HealthState(state)
		r.LastReason = domain.FailureReason(reason)
		r.LastSuccessAt = fromNanos(success)
		r.LastFailureAt = fromNanos(failure)
		r.UpdatedAt = fromNanos(updated)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) exec(ctx context.Context, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return rows, nil
}

// toNanos stores the zero time as 0 so it survives a round trip
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func marshalList[T any](list []T) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalList[T any](raw string, dest *[]T) error {
	if raw == "" || raw == "[]" {
		*dest = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}
