// ABOUTME: Source domain model represents a curated feed origin and its operational state
// ABOUTME: Provides validation so only absolute http(s) feed URLs enter the registry

package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Source represents a configured origin feed to collect from
type Source struct {
	// ID is the stable identifier for the source
	ID string `json:"id"`

	// FeedURL is the RSS/Atom/RDF document URL
	FeedURL string `json:"feed_url"`

	// Category is the editorial category articles from this source inherit
	Category string `json:"category"`

	// Country is the ISO country code the source publishes for
	Country string `json:"country"`

	// Language is the declared language of the source, empty when unknown
	Language string `json:"language,omitempty"`

	// Enabled controls whether the source is collected; sources are never deleted
	Enabled bool `json:"enabled"`

	// Health mirrors the state of the source's HealthRecord
	Health HealthState `json:"health"`

	// LastFetchedAt is when the last collection attempt finished
	LastFetchedAt time.Time `json:"last_fetched_at"`

	// ConsecutiveFailures mirrors the HealthRecord counter
	ConsecutiveFailures int `json:"consecutive_failures"`
}

// Validate checks that the source can be collected
func (s *Source) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("source id cannot be empty")
	}
	if s.FeedURL == "" {
		return errors.New("source feed url cannot be empty")
	}

	u, err := url.Parse(s.FeedURL)
	if err != nil {
		return errors.New("source feed url is invalid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("source feed url must use http or https")
	}
	if u.Host == "" {
		return errors.New("source feed url must be absolute")
	}

	return nil
}
