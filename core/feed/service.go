// ABOUTME: Feed service answers read-time queries over stored articles
// ABOUTME: Ranks a recency-bounded candidate set per user and finds related coverage

package feed

import (
	"context"
	"time"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/core/ranker"
)

const (
	// DefaultCandidateWindow bounds how far back ranking candidates are loaded
	DefaultCandidateWindow = 72 * time.Hour

	// DefaultRelatedLimit is used when a caller asks for k <= 0 related articles
	DefaultRelatedLimit = 10
)

// Store is the read access the feed service needs
type Store interface {
	interfaces.ArticleStore
	interfaces.ClusterStore
}

// RankedArticle is one feed position with the article it points at
type RankedArticle struct {
	Entry   domain.FeedEntry
	Article domain.Article
}

// Page is one page of a ranked feed
type Page struct {
	Items   []RankedArticle
	Page    int
	PerPage int
	Total   int
}

// Related is an article related to the one asked about
type Related struct {
	Article domain.Article
	Score   float64

	// Via is "vector" for index hits and "cluster" for co-members
	Via string
}

// Service handles feed ranking and related article lookup
type Service struct {
	deps   interfaces.Dependencies
	store  Store
	ranker *ranker.Ranker
	index  interfaces.VectorIndex
	window time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithVectorIndex enables related lookups by embedding similarity
func WithVectorIndex(index interfaces.VectorIndex) Option {
	return func(s *Service) { s.index = index }
}

// WithCandidateWindow sets how far back ranking candidates reach
func WithCandidateWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithRanker replaces the default ranker
func WithRanker(r *ranker.Ranker) Option {
	return func(s *Service) {
		if r != nil {
			s.ranker = r
		}
	}
}

// NewService creates a new feed service instance
func NewService(deps interfaces.Dependencies, store Store, opts ...Option) *Service {
	if deps.Logger == nil {
		deps.Logger = interfaces.NopLogger{}
	}
	s := &Service{
		deps:   deps,
		store:  store,
		window: DefaultCandidateWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ranker == nil {
		s.ranker = ranker.New(ranker.WithClock(deps.Now))
	}
	return s
}

// RankedFeed ranks every article published inside the candidate window for user
// and returns the requested page. Identical inputs always produce identical pages.
func (s *Service) RankedFeed(ctx context.Context, user domain.UserContext, page, perPage int) (*Page, error) {
	if user.Now.IsZero() {
		user.Now = s.deps.Now()
	}

	candidates, err := s.store.ListArticlesSince(ctx, user.Now.Add(-s.window))
	if err != nil {
		return nil, errors.WrapError(err, "load feed candidates")
	}

	articles := make([]domain.Article, len(candidates))
	byID := make(map[string]int, len(candidates))
	for i, a := range candidates {
		articles[i] = *a
		byID[a.ID] = i
	}

	entries := s.ranker.Rank(articles, user)
	paged := PaginateEntries(entries, page, perPage)

	items := make([]RankedArticle, len(paged))
	for i, e := range paged {
		items[i] = RankedArticle{Entry: e, Article: articles[byID[e.ArticleID]]}
	}

	page, perPage = normalizePage(page, perPage)

	s.deps.Logger.Debug("Ranked feed", map[string]interface{}{
		"user_id":    user.UserID,
		"candidates": len(articles),
		"page":       page,
		"returned":   len(items),
	})

	return &Page{Items: items, Page: page, PerPage: perPage, Total: len(entries)}, nil
}

// Related returns up to k articles covering the same story as articleID.
// With a vector index and an embedded article it returns nearest neighbours;
// otherwise the other members of the article's cluster, newest first.
func (s *Service) Related(ctx context.Context, articleID string, k int) ([]Related, error) {
	if k <= 0 {
		k = DefaultRelatedLimit
	}

	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	if s.index != nil && article.HasEmbedding() {
		related, err := s.byVector(ctx, article, k)
		if err == nil {
			return related, nil
		}
		s.deps.Logger.Warn("Vector search failed, using cluster members", map[string]interface{}{
			"article_id": articleID,
			"error":      err.Error(),
		})
	}

	return s.byCluster(ctx, article, k)
}

func (s *Service) byVector(ctx context.Context, article *domain.Article, k int) ([]Related, error) {
	// one extra hit because the article finds itself
	matches, err := s.index.Search(ctx, article.Embedding, k+1)
	if err != nil {
		return nil, err
	}

	out := make([]Related, 0, k)
	for _, m := range matches {
		if m.ID == article.ID {
			continue
		}
		a, err := s.store.GetArticle(ctx, m.ID)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, Related{Article: *a, Score: m.Score, Via: "vector"})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (s *Service) byCluster(ctx context.Context, article *domain.Article, k int) ([]Related, error) {
	if article.ClusterID == "" {
		return []Related{}, nil
	}

	c, err := s.store.GetCluster(ctx, article.ClusterID)
	if err != nil {
		if errors.IsNotFound(err) {
			return []Related{}, nil
		}
		return nil, err
	}

	members := make([]domain.Article, 0, len(c.MemberIDs))
	for _, id := range c.MemberIDs {
		if id == article.ID {
			continue
		}
		a, err := s.store.GetArticle(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		members = append(members, *a)
	}

	sortNewestFirst(members)
	if len(members) > k {
		members = members[:k]
	}

	out := make([]Related, len(members))
	for i, a := range members {
		out[i] = Related{Article: a, Score: 1, Via: "cluster"}
	}
	return out, nil
}
