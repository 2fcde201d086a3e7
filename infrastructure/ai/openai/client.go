// ABOUTME: OpenAI-compatible adapter for embeddings and JSON chat annotations
// ABOUTME: Talks through the HTTPClient port so rate limiting and timeouts stay in one place

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/pkg/config"
)

const (
	apiName        = "openai"
	maxErrorBytes  = 1024
	annotatePrompt = "You annotate news articles. Reply with a JSON object " +
		`{"keywords": [...], "summary": "..."}. ` +
		"Keywords are lowercase topical phrases in the article language. " +
		"The summary is at most two sentences."
)

var (
	_ interfaces.Embedder  = (*Client)(nil)
	_ interfaces.Annotator = (*Client)(nil)
)

// Client calls /v1/embeddings and /v1/chat/completions
type Client struct {
	http           interfaces.HTTPClient
	baseURL        string
	apiKey         string
	embeddingModel string
	chatModel      string
}

// NewClient builds a client from the AI config section
func NewClient(httpClient interfaces.HTTPClient, cfg config.AIConfig) *Client {
	return &Client{
		http:           httpClient,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one vector per text in input order
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := c.post(ctx, "/v1/embeddings", embedRequest{Model: c.embeddingModel, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, &errors.ExternalAPIError{
			API:        apiName,
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	out := make([][]float32, len(texts))
	dim := len(resp.Data[0].Embedding)
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, &errors.ExternalAPIError{API: apiName, StatusCode: http.StatusOK, Message: "embedding index out of range"}
		}
		// every vector in a batch must share one non-zero dimension
		if dim == 0 || len(d.Embedding) != dim {
			return nil, &errors.ExternalAPIError{API: apiName, StatusCode: http.StatusOK, Message: "inconsistent embedding dimension"}
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Annotate asks the chat model for keywords and a summary
func (c *Client) Annotate(ctx context.Context, req interfaces.AnnotationRequest) (*interfaces.AnnotationResponse, error) {
	user := fmt.Sprintf("Language: %s\nMax keywords: %d\nTitle: %s\n\n%s", req.Language, req.MaxKeywords, req.Title, req.Body)

	var resp chatResponse
	err := c.post(ctx, "/v1/chat/completions", chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: annotatePrompt},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, &errors.ExternalAPIError{API: apiName, StatusCode: http.StatusOK, Message: "no choices returned"}
	}

	var out interfaces.AnnotationResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, &errors.ExternalAPIError{API: apiName, StatusCode: http.StatusOK, Message: "annotation is not valid JSON: " + err.Error()}
	}
	if req.MaxKeywords > 0 && len(out.Keywords) > req.MaxKeywords {
		out.Keywords = out.Keywords[:req.MaxKeywords]
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	resp, err := c.http.Post(ctx, c.baseURL+path, bytes.NewReader(payload),
		interfaces.WithHeader("Authorization", "Bearer "+c.apiKey))
	if err != nil {
		return err
	}
	defer resp.Body().Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body(), maxErrorBytes))
		return &errors.ExternalAPIError{
			API:        apiName,
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if err := json.NewDecoder(resp.Body()).Decode(dest); err != nil {
		return &errors.ExternalAPIError{API: apiName, StatusCode: resp.StatusCode(), Message: "decode response: " + err.Error()}
	}
	return nil
}
