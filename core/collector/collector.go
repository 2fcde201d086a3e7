// ABOUTME: Collector fetches raw feed documents for many sources concurrently
// ABOUTME: Each source has its own timeout; one slow or broken source never affects its siblings

package collector

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/pkg/metrics"
)

const (
	// DefaultWorkers bounds concurrent outbound fetches
	DefaultWorkers = 8

	// DefaultTimeout applies to each source fetch independently
	DefaultTimeout = 15 * time.Second

	// DefaultMaxBodyBytes caps a feed document
	DefaultMaxBodyBytes int64 = 5 << 20

	validatorKeyPrefix = "collector:validators:"
	validatorTTL       = 30 * 24 * time.Hour
)

// Result is the outcome of fetching one source. Exactly one of Body/NotModified/Err describes it.
type Result struct {
	SourceID    string
	Body        []byte
	StatusCode  int
	NotModified bool
	Err         error
	Duration    time.Duration
	FetchedAt   time.Time
}

// OK reports whether the fetch succeeded, including a 304
func (r Result) OK() bool {
	return r.Err == nil
}

// validators are the conditional GET tokens remembered per source
type validators struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// Collector fetches feeds through the HTTPClient port
type Collector struct {
	client       interfaces.HTTPClient
	gate         *RunGate
	workers      int
	timeout      time.Duration
	maxBodyBytes int64
	cache        interfaces.Cache
	logger       interfaces.Logger
	metrics      *metrics.Manager
	now          func() time.Time
}

// Option configures a Collector
type Option func(*Collector)

// WithWorkers bounds concurrent fetches
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithTimeout sets the per-source timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodyBytes caps response bodies
func WithMaxBodyBytes(n int64) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithConditionalGET remembers ETag/Last-Modified per source in cache
func WithConditionalGET(cache interfaces.Cache) Option {
	return func(c *Collector) { c.cache = cache }
}

// WithGate replaces the default run gate
func WithGate(g *RunGate) Option {
	return func(c *Collector) { c.gate = g }
}

// WithLogger sets the logger
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithMetrics records fetch outcomes
func WithMetrics(mm *metrics.Manager) Option {
	return func(c *Collector) { c.metrics = mm }
}

// WithClock overrides the fetch timestamp clock
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector
func New(client interfaces.HTTPClient, opts ...Option) *Collector {
	c := &Collector{
		client:       client,
		workers:      DefaultWorkers,
		timeout:      DefaultTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       interfaces.NopLogger{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gate == nil {
		c.gate = NewRunGate(DefaultCooldown)
	}
	return c
}

// Gate returns the collector's run gate
func (c *Collector) Gate() *RunGate {
	return c.gate
}

// Collect runs one gated collection over sources. It returns ErrCooldownActive
// (as a *errors.CooldownError) when the gate rejects the run.
func (c *Collector) Collect(ctx context.Context, sources []domain.Source) ([]Result, error) {
	release, err := c.gate.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return c.Fetch(ctx, sources), nil
}

// Fetch retrieves every enabled source concurrently without consulting the gate.
// Results come back in the order of the enabled sources.
func (c *Collector) Fetch(ctx context.Context, sources []domain.Source) []Result {
	enabled := make([]domain.Source, 0, len(sources))
	for _, src := range sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	results := make([]Result, len(enabled))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, src := range enabled {
		i, src := i, src
		g.Go(func() error {
			results[i] = c.fetchOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Collector) fetchOne(parent context.Context, src domain.Source) (res Result) {
	start := time.Now()
	res.SourceID = src.ID

	defer func() {
		if r := recover(); r != nil {
			res.Body = nil
			res.Err = &errors.FetchError{SourceID: src.ID, URL: src.FeedURL, Reason: domain.ReasonNetwork, Err: fmt.Errorf("panic: %v", r)}
		}
		res.Duration = time.Since(start)
		res.FetchedAt = c.now()
		c.observe(src, res)
	}()

	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var opts []interfaces.RequestOption
	opts = append(opts, interfaces.WithHeader("Accept", "application/rss+xml, application/atom+xml, application/rdf+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"))
	prev := c.loadValidators(ctx, src.ID)
	if prev.ETag != "" {
		opts = append(opts, interfaces.WithHeader("If-None-Match", prev.ETag))
	}
	if prev.LastModified != "" {
		opts = append(opts, interfaces.WithHeader("If-Modified-Since", prev.LastModified))
	}

	resp, err := c.client.Get(ctx, src.FeedURL, opts...)
	if err != nil {
		res.Err = &errors.FetchError{SourceID: src.ID, URL: src.FeedURL, Reason: classify(ctx, err), Err: err}
		return res
	}
	body := resp.Body()
	if body != nil {
		defer body.Close()
	}
	res.StatusCode = resp.StatusCode()

	if res.StatusCode == http.StatusNotModified {
		res.NotModified = true
		return res
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		res.Err = &errors.FetchError{SourceID: src.ID, URL: src.FeedURL, StatusCode: res.StatusCode, Reason: domain.ReasonHTTPStatus}
		return res
	}
	if body == nil {
		return res
	}

	data, err := io.ReadAll(io.LimitReader(body, c.maxBodyBytes+1))
	if err != nil {
		res.Err = &errors.FetchError{SourceID: src.ID, URL: src.FeedURL, Reason: classify(ctx, err), Err: err}
		return res
	}
	if int64(len(data)) > c.maxBodyBytes {
		res.Err = &errors.FetchError{
			SourceID: src.ID,
			URL:      src.FeedURL,
			Reason:   domain.ReasonTooLarge,
			Err:      fmt.Errorf("body exceeds %d bytes", c.maxBodyBytes),
		}
		return res
	}
	res.Body = data

	c.storeValidators(ctx, src.ID, validators{
		ETag:         resp.Header("ETag"),
		LastModified: resp.Header("Last-Modified"),
	})
	return res
}

func (c *Collector) observe(src domain.Source, res Result) {
	reason := errors.ReasonOf(res.Err)
	c.metrics.FetchObserved(res.Err == nil, string(reason), res.Duration)

	if res.Err != nil {
		c.logger.Warn("Source fetch failed", map[string]interface{}{
			"source_id":   src.ID,
			"url":         src.FeedURL,
			"reason":      string(reason),
			"status_code": res.StatusCode,
			"duration_ms": res.Duration.Milliseconds(),
			"error":       res.Err.Error(),
		})
		return
	}
	c.logger.Debug("Source fetched", map[string]interface{}{
		"source_id":    src.ID,
		"status_code":  res.StatusCode,
		"not_modified": res.NotModified,
		"bytes":        len(res.Body),
		"duration_ms":  res.Duration.Milliseconds(),
	})
}

func (c *Collector) loadValidators(ctx context.Context, sourceID string) validators {
	var v validators
	if c.cache == nil {
		return v
	}
	data, err := c.cache.Get(ctx, validatorKeyPrefix+sourceID)
	if err != nil {
		return v
	}
	_ = json.Unmarshal(data, &v)
	return v
}

func (c *Collector) storeValidators(ctx context.Context, sourceID string, v validators) {
	if c.cache == nil {
		return
	}
	key := validatorKeyPrefix + sourceID
	if v.ETag == "" && v.LastModified == "" {
		_ = c.cache.Delete(ctx, key)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, validatorTTL); err != nil {
		c.logger.Debug("Failed to store validators", map[string]interface{}{
			"source_id": sourceID,
			"error":     err.Error(),
		})
	}
}

// ForgetValidators drops the conditional GET tokens for a source, forcing a full fetch next time
func (c *Collector) ForgetValidators(ctx context.Context, sourceID string) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Delete(ctx, validatorKeyPrefix+sourceID)
}

// classify maps a transport error onto a failure reason
func classify(ctx context.Context, err error) domain.FailureReason {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(ctx.Err(), context.Canceled) {
		return domain.ReasonCanceled
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonTimeout
	}
	return domain.ReasonNetwork
}
