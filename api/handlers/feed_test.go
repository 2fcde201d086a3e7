package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digests-pipeline/api/dto/responses"
	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/feed"
)

func TestFeedHandler_RegisterRoutes(t *testing.T) {
	_, api := humatest.New(t)
	NewFeedHandler(&mockFeedService{}).RegisterRoutes(api)
	RegisterHealthz(api)

	openapi := api.OpenAPI()
	require.NotNil(t, openapi.Paths["/feed"])
	assert.NotNil(t, openapi.Paths["/feed"].Get)
	require.NotNil(t, openapi.Paths["/articles/{id}/related"])
	require.NotNil(t, openapi.Paths["/healthz"])
}

func TestFeedHandler_RankedFeedPassesUserContext(t *testing.T) {
	var gotUser domain.UserContext
	var gotPage, gotPerPage int
	svc := &mockFeedService{rankedFeedFunc: func(ctx context.Context, user domain.UserContext, page, perPage int) (*feed.Page, error) {
		gotUser, gotPage, gotPerPage = user, page, perPage
		return &feed.Page{
			Page: page, PerPage: perPage, Total: 1,
			Items: []feed.RankedArticle{{
				Entry:   domain.FeedEntry{ArticleID: "a1", Rank: 1, Score: 0.9},
				Article: domain.Article{ID: "a1", Title: "Rates held", CanonicalURL: "https://a.example/a1", PublishedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
			}},
		}, nil
	}}

	_, api := humatest.New(t)
	NewFeedHandler(svc).RegisterRoutes(api)

	resp := api.Get("/feed?user_id=u1&interests=business:0.8,tech&keywords=Rates&page=2&per_page=5")
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, "u1", gotUser.UserID)
	assert.Equal(t, map[string]float64{"business": 0.8, "tech": 1}, gotUser.Interests)
	assert.Equal(t, []string{"rates"}, gotUser.Keywords)
	assert.Equal(t, 2, gotPage)
	assert.Equal(t, 5, gotPerPage)

	var body responses.FeedResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Rates held", body.Items[0].Title)
}

func TestFeedHandler_RankedFeedDefaults(t *testing.T) {
	var gotPage, gotPerPage int
	svc := &mockFeedService{rankedFeedFunc: func(ctx context.Context, user domain.UserContext, page, perPage int) (*feed.Page, error) {
		gotPage, gotPerPage = page, perPage
		return &feed.Page{Page: page, PerPage: perPage}, nil
	}}

	_, api := humatest.New(t)
	NewFeedHandler(svc).RegisterRoutes(api)

	require.Equal(t, http.StatusOK, api.Get("/feed").Code)
	assert.Equal(t, 1, gotPage)
	assert.Equal(t, 10, gotPerPage)
}

func TestFeedHandler_RankedFeedRejectsBadInterests(t *testing.T) {
	_, api := humatest.New(t)
	NewFeedHandler(&mockFeedService{}).RegisterRoutes(api)

	assert.Equal(t, http.StatusBadRequest, api.Get("/feed?interests=sport:7").Code)
}

func TestFeedHandler_RankedFeedRejectsOversizedPage(t *testing.T) {
	_, api := humatest.New(t)
	NewFeedHandler(&mockFeedService{}).RegisterRoutes(api)

	assert.Equal(t, http.StatusUnprocessableEntity, api.Get("/feed?per_page=500").Code)
}

func TestFeedHandler_Related(t *testing.T) {
	svc := &mockFeedService{relatedFunc: func(ctx context.Context, articleID string, k int) ([]feed.Related, error) {
		assert.Equal(t, "a1", articleID)
		assert.Equal(t, 3, k)
		return []feed.Related{{Article: domain.Article{ID: "a2", Title: "Same story"}, Score: 0.91, Via: "vector"}}, nil
	}}

	_, api := humatest.New(t)
	NewFeedHandler(svc).RegisterRoutes(api)

	resp := api.Get("/articles/a1/related?limit=3")
	require.Equal(t, http.StatusOK, resp.Code)

	var body responses.RelatedResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "a1", body.ArticleID)
	require.Len(t, body.Related, 1)
	assert.Equal(t, "vector", body.Related[0].Via)
}

func TestFeedHandler_RelatedUnknownArticle(t *testing.T) {
	svc := &mockFeedService{relatedFunc: func(ctx context.Context, articleID string, k int) ([]feed.Related, error) {
		return nil, &errors.NotFoundError{Resource: "article", ID: articleID}
	}}

	_, api := humatest.New(t)
	NewFeedHandler(svc).RegisterRoutes(api)

	assert.Equal(t, http.StatusNotFound, api.Get("/articles/missing/related").Code)
}

func TestHealthz(t *testing.T) {
	_, api := humatest.New(t)
	RegisterHealthz(api)

	resp := api.Get("/healthz")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"ok"`)
}
