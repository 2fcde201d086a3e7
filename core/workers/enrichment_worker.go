// ABOUTME: Enrichment worker runs article enrichment on a bounded pool of goroutines
// ABOUTME: Sized to the AI capability's concurrency limit; jobs that cannot be queued fall back inline

package workers

import (
	"context"
	"sync"
	"time"

	"digests-pipeline/core/domain"
)

// Enricher is the per-article transform the pool runs
type Enricher interface {
	Enrich(ctx context.Context, article domain.Article) domain.Article
}

// EnrichmentJob represents one article to enrich
type EnrichmentJob struct {
	Index    int
	Article  domain.Article
	Context  context.Context
	ResultCh chan<- EnrichmentResult
}

// EnrichmentResult carries an enriched article back to the submitter
type EnrichmentResult struct {
	Index   int
	Article domain.Article
}

// EnrichmentWorker manages background enrichment processing
type EnrichmentWorker struct {
	enricher      Enricher
	jobQueue      chan *EnrichmentJob
	maxWorkers    int
	queueSize     int
	submitTimeout time.Duration
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	mu            sync.Mutex
	running       bool
	stopped       bool
}

// worker represents an individual worker goroutine
type worker struct {
	id       int
	jobQueue <-chan *EnrichmentJob
	enricher Enricher
	ctx      context.Context
	wg       *sync.WaitGroup
}

// WorkerConfig holds configuration for the enrichment worker
type WorkerConfig struct {
	MaxWorkers    int
	QueueSize     int
	SubmitTimeout time.Duration
}

// DefaultWorkerConfig returns the default worker configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MaxWorkers:    4,
		QueueSize:     100,
		SubmitTimeout: 5 * time.Second,
	}
}

// NewEnrichmentWorker creates a new enrichment worker
func NewEnrichmentWorker(enricher Enricher, config WorkerConfig) *EnrichmentWorker {
	ctx, cancel := context.WithCancel(context.Background())

	defaults := DefaultWorkerConfig()
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = defaults.MaxWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.SubmitTimeout <= 0 {
		config.SubmitTimeout = defaults.SubmitTimeout
	}

	return &EnrichmentWorker{
		enricher:      enricher,
		jobQueue:      make(chan *EnrichmentJob, config.QueueSize),
		maxWorkers:    config.MaxWorkers,
		queueSize:     config.QueueSize,
		submitTimeout: config.SubmitTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the worker pool
func (ew *EnrichmentWorker) Start() error {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	if ew.stopped {
		return ErrWorkerStopped
	}
	if ew.running {
		return nil
	}

	for i := 0; i < ew.maxWorkers; i++ {
		w := &worker{
			id:       i,
			jobQueue: ew.jobQueue,
			enricher: ew.enricher,
			ctx:      ew.ctx,
			wg:       &ew.wg,
		}
		ew.wg.Add(1)
		go w.run()
	}

	ew.running = true
	return nil
}

// Stop stops the worker pool. Queued jobs that were not picked up are abandoned;
// EnrichBatch enriches those inline.
func (ew *EnrichmentWorker) Stop() error {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	if !ew.running {
		return nil
	}

	ew.cancel()
	ew.wg.Wait()

	ew.running = false
	ew.stopped = true
	return nil
}

// SubmitJob submits a job to the worker pool
func (ew *EnrichmentWorker) SubmitJob(job *EnrichmentJob) error {
	ew.mu.Lock()
	if !ew.running {
		ew.mu.Unlock()
		return ErrWorkerNotRunning
	}
	ew.mu.Unlock()

	timer := time.NewTimer(ew.submitTimeout)
	defer timer.Stop()

	select {
	case ew.jobQueue <- job:
		return nil
	case <-ew.ctx.Done():
		return ErrWorkerNotRunning
	case <-timer.C:
		return ErrQueueFull
	}
}

// EnrichBatch enriches articles on the pool and returns them in input order.
// Articles that could not be queued, or whose results never arrive because the
// pool or ctx stopped, go through fallback instead.
func (ew *EnrichmentWorker) EnrichBatch(ctx context.Context, articles []domain.Article, fallback func(domain.Article) domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	done := make([]bool, len(articles))
	results := make(chan EnrichmentResult, len(articles))

	pending := 0
	for i, a := range articles {
		err := ew.SubmitJob(&EnrichmentJob{Index: i, Article: a, Context: ctx, ResultCh: results})
		if err != nil {
			out[i] = fallback(a)
			done[i] = true
			continue
		}
		pending++
	}

collect:
	for pending > 0 {
		select {
		case r := <-results:
			out[r.Index] = r.Article
			done[r.Index] = true
			pending--
		case <-ctx.Done():
			break collect
		case <-ew.ctx.Done():
			break collect
		}
	}

	for i := range articles {
		if !done[i] {
			out[i] = fallback(articles[i])
		}
	}
	return out
}

// run is the main loop for each worker
func (w *worker) run() {
	defer w.wg.Done()

	for {
		select {
		case job := <-w.jobQueue:
			w.processJob(job)
		case <-w.ctx.Done():
			return
		}
	}
}

// processJob processes a single enrichment job
func (w *worker) processJob(job *EnrichmentJob) {
	ctx := job.Context
	if ctx == nil {
		ctx = w.ctx
	}
	enriched := w.enricher.Enrich(ctx, job.Article)
	if job.ResultCh == nil {
		return
	}
	select {
	case job.ResultCh <- EnrichmentResult{Index: job.Index, Article: enriched}:
	case <-ctx.Done():
	}
}

// Error definitions
var (
	ErrWorkerNotRunning = &WorkerError{Message: "worker pool is not running"}
	ErrWorkerStopped    = &WorkerError{Message: "worker pool has been stopped"}
	ErrQueueFull        = &WorkerError{Message: "job queue is full"}
)

// WorkerError represents a worker-specific error
type WorkerError struct {
	Message string
}

func (e *WorkerError) Error() string {
	return e.Message
}
