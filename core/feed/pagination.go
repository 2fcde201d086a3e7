// ABOUTME: Pagination utilities for ranked feed entries
// ABOUTME: Pages are 1-based; out-of-range pages are empty, never an error

package feed

import (
	"sort"

	"digests-pipeline/core/domain"
)

// DefaultPerPage is used when a caller passes perPage < 1
const DefaultPerPage = 10

// MaxPerPage caps a single page
const MaxPerPage = 100

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// PaginateEntries returns a paginated slice of feed entries
func PaginateEntries(entries []domain.FeedEntry, page, perPage int) []domain.FeedEntry {
	page, perPage = normalizePage(page, perPage)

	// Calculate start and end indices
	start := (page - 1) * perPage
	end := start + perPage

	// Check if start is beyond entries
	if start >= len(entries) {
		return []domain.FeedEntry{}
	}

	// Adjust end if it's beyond entries
	if end > len(entries) {
		end = len(entries)
	}

	return entries[start:end]
}

// sortNewestFirst orders articles by publish time descending, then id
func sortNewestFirst(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		}
		return articles[i].ID < articles[j].ID
	})
}
