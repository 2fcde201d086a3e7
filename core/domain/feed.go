// ABOUTME: Feed domain models for read-time ranking requests
// ABOUTME: FeedEntry values are ephemeral and never persisted

package domain

import (
	"strings"
	"time"
)

// FeedEntry is one ranked position in a user's feed
type FeedEntry struct {
	ArticleID string  `json:"article_id"`
	ClusterID string  `json:"cluster_id,omitempty"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

// UserContext carries the declared or inferred interests used for ranking
type UserContext struct {
	UserID string

	// Interests maps a category to an affinity weight in [0,1]
	Interests map[string]float64

	// Keywords are topics the user follows
	Keywords []string

	// Now anchors recency decay; zero means the ranker's clock
	Now time.Time
}

// CategoryAffinity returns the user's weight for category, clamped to [0,1]
func (u UserContext) CategoryAffinity(category string) float64 {
	if len(u.Interests) == 0 || category == "" {
		return 0
	}
	w, ok := u.Interests[strings.ToLower(category)]
	if !ok {
		return 0
	}
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
