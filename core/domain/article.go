// ABOUTME: Article domain model represents one normalized piece of content from a source
// ABOUTME: Carries enrichment results and the cluster back-reference assigned during ingestion

package domain

import "time"

// KeywordSource records which strategy produced an article's keywords
type KeywordSource string

const (
	// KeywordsFromVocabulary marks keywords from controlled vocabulary matching
	KeywordsFromVocabulary KeywordSource = "vocabulary"

	// KeywordsFromAI marks keywords supplied by the AI capability
	KeywordsFromAI KeywordSource = "ai"
)

// Article represents one normalized feed entry
type Article struct {
	// ID is derived from the canonical URL, so re-normalizing yields the same id
	ID string `json:"id"`

	// SourceID references the Source the article was collected from
	SourceID string `json:"source_id"`

	// CanonicalURL is the dedup key: identical canonical URL means same article
	CanonicalURL string `json:"canonical_url"`

	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url,omitempty"`
	Author   string `json:"author,omitempty"`

	// Category is inherited from the source
	Category string `json:"category,omitempty"`

	// Language is the primary language subtag (e.g. "en"), declared or detected
	Language string `json:"language,omitempty"`

	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`

	// Enrichment output
	Keywords      []string      `json:"keywords,omitempty"`
	KeywordSource KeywordSource `json:"keyword_source,omitempty"`
	Summary       string        `json:"summary,omitempty"`
	QualityScore  float64       `json:"quality_score"`
	Embedding     []float32     `json:"embedding,omitempty"`

	// ClusterID is empty until the clusterer assigns one
	ClusterID string `json:"cluster_id,omitempty"`
}

// HasEmbedding reports whether an embedding vector is present
func (a *Article) HasEmbedding() bool {
	return len(a.Embedding) > 0
}

// Text returns the title and body joined for text analysis
func (a *Article) Text() string {
	if a.Body == "" {
		return a.Title
	}
	if a.Title == "" {
		return a.Body
	}
	return a.Title + "\n" + a.Body
}
