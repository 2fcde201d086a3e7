// ABOUTME: Prometheus collectors for collection runs, fetches and enrichment
// ABOUTME: Every method tolerates a nil *Manager

// Package metrics exposes Prometheus metrics for the ingestion pipeline.
// Every method is safe on a nil *Manager so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the pipeline's collectors and the registry they live in
type Manager struct {
	namespace string
	registry  *prometheus.Registry
	buckets   []float64

	runs               *prometheus.CounterVec
	runDuration        prometheus.Histogram
	fetches            *prometheus.CounterVec
	fetchDuration      prometheus.Histogram
	articlesIngested   prometheus.Counter
	articlesSkipped    prometheus.Counter
	articlesDuplicate  prometheus.Counter
	clustersCreated    prometheus.Counter
	clustersJoined     prometheus.Counter
	enrichmentFallback *prometheus.CounterVec
	sourceHealth       *prometheus.GaugeVec
	httpRequests       *prometheus.CounterVec
}

// Option configures a Manager
type Option func(*Manager)

// WithNamespace overrides the metric namespace
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithRegistry registers metrics on reg instead of a fresh registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) { m.registry = reg }
}

// WithBuckets sets the duration histogram buckets in seconds
func WithBuckets(buckets []float64) Option {
	return func(m *Manager) { m.buckets = buckets }
}

// NewManager creates a manager with its own registry unless one is supplied
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "digests",
		buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "pipeline", Name: "runs_total",
		Help: "Collection runs by outcome (completed, rejected, failed)",
	}, []string{"outcome"})
	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "pipeline", Name: "run_duration_seconds",
		Help: "Wall time of completed collection runs", Buckets: m.buckets,
	})
	m.fetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "collector", Name: "fetches_total",
		Help: "Source fetch outcomes by result and failure reason",
	}, []string{"result", "reason"})
	m.fetchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "collector", Name: "fetch_duration_seconds",
		Help: "Per-source fetch latency", Buckets: m.buckets,
	})
	m.articlesIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "pipeline", Name: "articles_ingested_total",
		Help: "New articles persisted",
	})
	m.articlesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "normalizer", Name: "entries_skipped_total",
		Help: "Malformed feed entries skipped",
	})
	m.articlesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "pipeline", Name: "articles_duplicate_total",
		Help: "Articles dropped because their canonical URL was already stored",
	})
	m.clustersCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "clusterer", Name: "clusters_created_total",
		Help: "Story clusters created",
	})
	m.clustersJoined = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "clusterer", Name: "clusters_joined_total",
		Help: "Articles appended to an existing story cluster",
	})
	m.enrichmentFallback = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "enricher", Name: "fallbacks_total",
		Help: "AI enrichment calls resolved by the deterministic fallback",
	}, []string{"kind"})
	m.sourceHealth = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "health", Name: "source_state",
		Help: "Source health level: 0 healthy, 1 degraded, 2 failing, 3 critical",
	}, []string{"source_id"})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "api", Name: "requests_total",
		Help: "API requests by method and status code",
	}, []string{"method", "status"})
}

// Registry returns the underlying registry
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunCompleted records a finished run
func (m *Manager) RunCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("completed").Inc()
	m.runDuration.Observe(d.Seconds())
}

// RunRejected records a run refused by the cooldown gate
func (m *Manager) RunRejected() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("rejected").Inc()
}

// RunFailed records a run aborted before completion
func (m *Manager) RunFailed() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("failed").Inc()
}

// FetchObserved records one source fetch
func (m *Manager) FetchObserved(success bool, reason string, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.fetches.WithLabelValues(result, reason).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

// ArticlesIngested adds n persisted articles
func (m *Manager) ArticlesIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.articlesIngested.Add(float64(n))
}

// EntriesSkipped adds n malformed entries
func (m *Manager) EntriesSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.articlesSkipped.Add(float64(n))
}

// DuplicatesDropped adds n canonical-URL duplicates
func (m *Manager) DuplicatesDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.articlesDuplicate.Add(float64(n))
}

// ClusterAssigned records a cluster creation or join
func (m *Manager) ClusterAssigned(created bool) {
	if m == nil {
		return
	}
	if created {
		m.clustersCreated.Inc()
		return
	}
	m.clustersJoined.Inc()
}

// EnrichmentFallback records a deterministic fallback for kind ("annotation", "embedding")
func (m *Manager) EnrichmentFallback(kind string) {
	if m == nil {
		return
	}
	m.enrichmentFallback.WithLabelValues(kind).Inc()
}

// SourceHealth sets the health level gauge for a source
func (m *Manager) SourceHealth(sourceID string, level int) {
	if m == nil {
		return
	}
	m.sourceHealth.WithLabelValues(sourceID).Set(float64(level))
}

// HTTPRequest records an API request
func (m *Manager) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
