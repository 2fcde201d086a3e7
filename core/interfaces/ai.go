// ABOUTME: Ports for the optional AI inference capability and vector index
// ABOUTME: Callers bound every call with a timeout and treat failures as best-effort

package interfaces

import "context"

// Embedder generates semantic embedding vectors
type Embedder interface {
	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// AnnotationRequest is the text sent for AI keyword and summary generation
type AnnotationRequest struct {
	Title       string
	Body        string
	Language    string
	MaxKeywords int
}

// AnnotationResponse is the AI-produced keyword set and summary
type AnnotationResponse struct {
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary"`
}

// Annotator generates AI-only annotations for an article
type Annotator interface {
	Annotate(ctx context.Context, req AnnotationRequest) (*AnnotationResponse, error)
}

// VectorMatch is one similarity search hit
type VectorMatch struct {
	ID    string
	Score float64
}

// VectorIndex stores embeddings for similarity search
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32) error
	// Search returns at most k matches ordered by descending score
	Search(ctx context.Context, vector []float32, k int) ([]VectorMatch, error)
}
