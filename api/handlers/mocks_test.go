package handlers

import (
	"context"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/feed"
	"digests-pipeline/core/pipeline"
)

type mockRunner struct {
	runFunc func(ctx context.Context) (*pipeline.RunSummary, error)
}

func (m *mockRunner) Run(ctx context.Context) (*pipeline.RunSummary, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return &pipeline.RunSummary{}, nil
}

type mockReporter struct {
	reportFunc func(ctx context.Context) ([]domain.SourceHealth, error)
}

func (m *mockReporter) Report(ctx context.Context) ([]domain.SourceHealth, error) {
	if m.reportFunc != nil {
		return m.reportFunc(ctx)
	}
	return nil, nil
}

type mockFeedService struct {
	rankedFeedFunc func(ctx context.Context, user domain.UserContext, page, perPage int) (*feed.Page, error)
	relatedFunc    func(ctx context.Context, articleID string, k int) ([]feed.Related, error)
}

func (m *mockFeedService) RankedFeed(ctx context.Context, user domain.UserContext, page, perPage int) (*feed.Page, error) {
	if m.rankedFeedFunc != nil {
		return m.rankedFeedFunc(ctx, user, page, perPage)
	}
	return &feed.Page{Page: page, PerPage: perPage}, nil
}

func (m *mockFeedService) Related(ctx context.Context, articleID string, k int) ([]feed.Related, error) {
	if m.relatedFunc != nil {
		return m.relatedFunc(ctx, articleID, k)
	}
	return nil, nil
}
