// ABOUTME: Standard HTTP client implementation with per-host rate limiting and optional retries
// ABOUTME: Feed and AI traffic run with zero retries; the next scheduled run is the retry

package standard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"digests-pipeline/core/interfaces"
)

const defaultUserAgent = "DigestsPipeline/1.0 (+https://github.com/BumpyClock)"

// StandardHTTPClient implements the HTTPClient interface using standard library transport
type StandardHTTPClient struct {
	client     *http.Client
	userAgent  string
	maxRetries int

	hostRate  rate.Limit
	hostBurst int
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
}

// Option configures a StandardHTTPClient
type Option func(*StandardHTTPClient)

// WithMaxRetries sets how many times a GET is retried after a network error or 5xx
func WithMaxRetries(n int) Option {
	return func(c *StandardHTTPClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *StandardHTTPClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHostRateLimit allows rps requests per second to each host, with burst
func WithHostRateLimit(rps float64, burst int) Option {
	return func(c *StandardHTTPClient) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.hostRate = rate.Limit(rps)
		c.hostBurst = burst
	}
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *StandardHTTPClient) { c.client.Transport = rt }
}

// NewStandardHTTPClient creates a new HTTP client with the specified overall timeout
func NewStandardHTTPClient(timeout time.Duration, opts ...Option) *StandardHTTPClient {
	c := &StandardHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
		hostRate:  rate.Inf,
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request
func (c *StandardHTTPClient) Get(ctx context.Context, rawURL string, opts ...interfaces.RequestOption) (interfaces.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req, opts)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 100ms, 200ms, 400ms
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.wait(ctx, req.URL); err != nil {
			return nil, err
		}

		resp, err = c.client.Do(req)
		if err != nil {
			lastErr = err
			resp = nil
			continue
		}

		// Don't retry on success or 4xx errors
		if resp.StatusCode < 500 || attempt == c.maxRetries {
			break
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server returned %d", resp.StatusCode)
		resp = nil
	}

	if resp == nil {
		return nil, lastErr
	}

	return &httpResponse{
		statusCode: resp.StatusCode,
		body:       resp.Body,
		headers:    resp.Header,
	}, nil
}

// Post performs an HTTP POST request; POSTs are never retried
func (c *StandardHTTPClient) Post(ctx context.Context, rawURL string, body io.Reader, opts ...interfaces.RequestOption) (interfaces.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req, opts)

	if err := c.wait(ctx, req.URL); err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	return &httpResponse{
		statusCode: resp.StatusCode,
		body:       resp.Body,
		headers:    resp.Header,
	}, nil
}

func (c *StandardHTTPClient) applyHeaders(req *http.Request, opts []interfaces.RequestOption) {
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range interfaces.ApplyRequestOptions(opts...).Headers {
		req.Header.Set(key, value)
	}
}

// wait blocks until the host's token bucket admits a request or ctx ends.
// A wait that would outlast ctx's deadline reports context.DeadlineExceeded.
func (c *StandardHTTPClient) wait(ctx context.Context, u *url.URL) error {
	if c.hostRate == rate.Inf {
		return nil
	}
	err := c.limiter(u.Host).Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("host rate limit: %w", ctxErr)
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("host rate limit: %w: %v", context.DeadlineExceeded, err)
	}
	return fmt.Errorf("host rate limit: %w", err)
}

func (c *StandardHTTPClient) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.hostRate, c.hostBurst)
		c.limiters[host] = l
	}
	return l
}

// httpResponse implements the Response interface
type httpResponse struct {
	statusCode int
	body       io.ReadCloser
	headers    http.Header
}

// StatusCode returns the HTTP status code
func (r *httpResponse) StatusCode() int {
	return r.statusCode
}

// Body returns the response body
func (r *httpResponse) Body() io.ReadCloser {
	return r.body
}

// Header returns the value of the specified header
func (r *httpResponse) Header(key string) string {
	return r.headers.Get(key)
}
