// ABOUTME: Mappers from pipeline and read-side results to response DTOs
// ABOUTME: Zero timestamps are omitted rather than rendered as year 1

package mappers

import (
	"time"

	"digests-pipeline/api/dto/responses"
	"digests-pipeline/core/domain"
	"digests-pipeline/core/feed"
	"digests-pipeline/core/pipeline"
)

// ToRunSummaryResponse converts a run summary
func ToRunSummaryResponse(s *pipeline.RunSummary) responses.RunSummaryResponse {
	out := responses.RunSummaryResponse{
		RunID:           s.RunID,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		DurationMS:      s.FinishedAt.Sub(s.StartedAt).Milliseconds(),
		Articles:        s.Articles,
		Duplicates:      s.Duplicates,
		Skipped:         s.Skipped,
		ClustersCreated: s.ClustersCreated,
		ClustersUpdated: s.ClustersUpdated,
		Failed:          s.Failed(),
		Sources:         make([]responses.SourceOutcomeResponse, 0, len(s.Sources)),
	}
	if out.Failed == nil {
		out.Failed = []string{}
	}
	for _, o := range s.Sources {
		out.Sources = append(out.Sources, responses.SourceOutcomeResponse{
			SourceID:    o.SourceID,
			Success:     o.Success,
			NotModified: o.NotModified,
			Reason:      string(o.Reason),
			Error:       o.Error,
			Articles:    o.Articles,
			Skipped:     o.Skipped,
			Duplicates:  o.Duplicates,
			Health:      string(o.Health),
		})
	}
	return out
}

// ToSourceHealthResponses converts a health report
func ToSourceHealthResponses(report []domain.SourceHealth) responses.SourcesHealthResponse {
	out := responses.SourcesHealthResponse{Sources: make([]responses.SourceHealthResponse, 0, len(report))}
	for _, sh := range report {
		out.Sources = append(out.Sources, responses.SourceHealthResponse{
			ID:                  sh.Source.ID,
			FeedURL:             sh.Source.FeedURL,
			Category:            sh.Source.Category,
			Country:             sh.Source.Country,
			Enabled:             sh.Source.Enabled,
			State:               string(sh.Record.State),
			ConsecutiveFailures: sh.Record.ConsecutiveFailures,
			LastSuccessAt:       optionalTime(sh.Record.LastSuccessAt),
			LastFailureAt:       optionalTime(sh.Record.LastFailureAt),
			LastReason:          string(sh.Record.LastReason),
			LastError:           sh.Record.LastError,
		})
	}
	return out
}

// ToFeedResponse converts one ranked page
func ToFeedResponse(p *feed.Page) responses.FeedResponse {
	out := responses.FeedResponse{
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   p.Total,
		Items:   make([]responses.FeedItemResponse, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		a := item.Article
		out.Items = append(out.Items, responses.FeedItemResponse{
			Rank:         item.Entry.Rank,
			Score:        item.Entry.Score,
			ArticleID:    a.ID,
			ClusterID:    item.Entry.ClusterID,
			SourceID:     a.SourceID,
			Title:        a.Title,
			URL:          a.CanonicalURL,
			Summary:      a.Summary,
			ImageURL:     a.ImageURL,
			Category:     a.Category,
			Language:     a.Language,
			Keywords:     a.Keywords,
			QualityScore: a.QualityScore,
			PublishedAt:  a.PublishedAt,
		})
	}
	return out
}

// ToRelatedResponse converts related articles for articleID
func ToRelatedResponse(articleID string, related []feed.Related) responses.RelatedResponse {
	out := responses.RelatedResponse{
		ArticleID: articleID,
		Related:   make([]responses.RelatedArticleResponse, 0, len(related)),
	}
	for _, r := range related {
		out.Related = append(out.Related, responses.RelatedArticleResponse{
			ArticleID:   r.Article.ID,
			SourceID:    r.Article.SourceID,
			Title:       r.Article.Title,
			URL:         r.Article.CanonicalURL,
			PublishedAt: r.Article.PublishedAt,
			Score:       r.Score,
			Via:         r.Via,
		})
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
