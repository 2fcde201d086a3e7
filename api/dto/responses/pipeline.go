// ABOUTME: Response bodies for the collection, health, feed and related endpoints
// ABOUTME: Kept separate from domain types so the wire format can evolve independently

package responses

import "time"

// SourceOutcomeResponse is one source's result within a run
type SourceOutcomeResponse struct {
	SourceID    string `json:"source_id" doc:"Source identifier"`
	Success     bool   `json:"success"`
	NotModified bool   `json:"not_modified,omitempty" doc:"The feed answered 304 Not Modified"`
	Reason      string `json:"reason,omitempty" doc:"Failure class: network, timeout, http_status or parse"`
	Error       string `json:"error,omitempty"`
	Articles    int    `json:"articles" doc:"New articles stored from this source"`
	Skipped     int    `json:"skipped,omitempty" doc:"Malformed entries skipped"`
	Duplicates  int    `json:"duplicates,omitempty" doc:"Entries already stored or seen earlier in the run"`
	Health      string `json:"health,omitempty" doc:"Source health after this run"`
}

// RunSummaryResponse is the body of POST /collections
type RunSummaryResponse struct {
	RunID           string                  `json:"run_id"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
	DurationMS      int64                   `json:"duration_ms"`
	Articles        int                     `json:"articles"`
	Duplicates      int                     `json:"duplicates"`
	Skipped         int                     `json:"skipped"`
	ClustersCreated int                     `json:"clusters_created"`
	ClustersUpdated int                     `json:"clusters_updated"`
	Failed          []string                `json:"failed" doc:"Ids of sources that failed this run"`
	Sources         []SourceOutcomeResponse `json:"sources"`
}

// SourceHealthResponse is one row of GET /sources/health
type SourceHealthResponse struct {
	ID                  string     `json:"id"`
	FeedURL             string     `json:"feed_url"`
	Category            string     `json:"category,omitempty"`
	Country             string     `json:"country,omitempty"`
	Enabled             bool       `json:"enabled"`
	State               string     `json:"state" enum:"healthy,degraded,failing,critical"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	LastReason          string     `json:"last_reason,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

// SourcesHealthResponse is the body of GET /sources/health
type SourcesHealthResponse struct {
	Sources []SourceHealthResponse `json:"sources"`
}

// FeedItemResponse is one ranked article
type FeedItemResponse struct {
	Rank         int       `json:"rank"`
	Score        float64   `json:"score"`
	ArticleID    string    `json:"article_id"`
	ClusterID    string    `json:"cluster_id,omitempty"`
	SourceID     string    `json:"source_id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Summary      string    `json:"summary,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Category     string    `json:"category,omitempty"`
	Language     string    `json:"language,omitempty"`
	Keywords     []string  `json:"keywords,omitempty"`
	QualityScore float64   `json:"quality_score"`
	PublishedAt  time.Time `json:"published_at"`
}

// FeedResponse is the body of GET /feed
type FeedResponse struct {
	Page    int                `json:"page"`
	PerPage int                `json:"per_page"`
	Total   int                `json:"total"`
	Items   []FeedItemResponse `json:"items"`
}

// RelatedArticleResponse is one related article
type RelatedArticleResponse struct {
	ArticleID   string    `json:"article_id"`
	SourceID    string    `json:"source_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score,omitempty"`
	Via         string    `json:"via" enum:"vector,cluster"`
}

// RelatedResponse is the body of GET /articles/{id}/related
type RelatedResponse struct {
	ArticleID string                   `json:"article_id"`
	Related   []RelatedArticleResponse `json:"related"`
}

// HealthzResponse is the liveness body
type HealthzResponse struct {
	Status string `json:"status" example:"ok"`
}
