// ABOUTME: Read-side handlers for the ranked feed and related articles
// ABOUTME: Query strings are parsed into a UserContext before ranking

package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"digests-pipeline/api/dto/mappers"
	"digests-pipeline/api/dto/requests"
	"digests-pipeline/api/dto/responses"
	"digests-pipeline/core/domain"
	"digests-pipeline/core/feed"
)

// FeedService interface defines the methods needed from the feed service
type FeedService interface {
	RankedFeed(ctx context.Context, user domain.UserContext, page, perPage int) (*feed.Page, error)
	Related(ctx context.Context, articleID string, k int) ([]feed.Related, error)
}

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feedService FeedService
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feedService FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// RegisterRoutes registers all feed-related routes
func (h *FeedHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "rankedFeed",
		Method:      http.MethodGet,
		Path:        "/feed",
		Summary:     "Ranked personalized feed",
		Description: "Ranks recent articles by recency, quality and the caller's interests, one article per story near the top",
		Tags:        []string{"Feed"},
	}, h.RankedFeed)

	huma.Register(api, huma.Operation{
		OperationID: "relatedArticles",
		Method:      http.MethodGet,
		Path:        "/articles/{id}/related",
		Summary:     "Articles covering the same story",
		Tags:        []string{"Feed"},
	}, h.Related)
}

// RankedFeedInput defines the query of GET /feed
type RankedFeedInput struct {
	UserID    string `query:"user_id" doc:"Caller identifier, used for logging only"`
	Interests string `query:"interests" doc:"Category weights, e.g. business:0.8,tech:0.5" example:"business:0.8,tech:0.5"`
	Keywords  string `query:"keywords" doc:"Comma separated topics the caller follows"`
	Page      int    `query:"page" minimum:"1" default:"1"`
	PerPage   int    `query:"per_page" minimum:"1" maximum:"100" default:"10"`
}

// RankedFeedOutput is one ranked page
type RankedFeedOutput struct {
	Body responses.FeedResponse
}

// RankedFeed handles GET /feed
func (h *FeedHandler) RankedFeed(ctx context.Context, input *RankedFeedInput) (*RankedFeedOutput, error) {
	user, err := requests.FeedQuery{
		UserID:    input.UserID,
		Interests: input.Interests,
		Keywords:  input.Keywords,
	}.UserContext()
	if err != nil {
		return nil, toHumaError(err)
	}

	page, err := h.feedService.RankedFeed(ctx, user, input.Page, input.PerPage)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &RankedFeedOutput{Body: mappers.ToFeedResponse(page)}, nil
}

// RelatedInput defines the input of GET /articles/{id}/related
type RelatedInput struct {
	ID    string `path:"id" doc:"Article id"`
	Limit int    `query:"limit" minimum:"1" maximum:"50" default:"10"`
}

// RelatedOutput lists related articles
type RelatedOutput struct {
	Body responses.RelatedResponse
}

// Related handles GET /articles/{id}/related
func (h *FeedHandler) Related(ctx context.Context, input *RelatedInput) (*RelatedOutput, error) {
	related, err := h.feedService.Related(ctx, input.ID, input.Limit)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &RelatedOutput{Body: mappers.ToRelatedResponse(input.ID, related)}, nil
}
