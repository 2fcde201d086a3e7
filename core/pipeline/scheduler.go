// ABOUTME: Scheduler triggers collection runs on a fixed interval
// ABOUTME: Cooldown rejections are expected and logged at info level

package pipeline

import (
	"context"
	"sync"
	"time"

	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
)

// Runner is anything that performs one collection run
type Runner interface {
	Run(ctx context.Context) (*RunSummary, error)
}

// Scheduler drives a Runner from a ticker
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   interfaces.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewScheduler creates a scheduler that triggers runner every interval
func NewScheduler(runner Runner, interval time.Duration, logger interfaces.Logger) *Scheduler {
	if logger == nil {
		logger = interfaces.NopLogger{}
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Start triggers one run immediately and then one per interval until Stop or ctx ends
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.WrapError(ErrSchedulerRunning, "start scheduler")
	}
	if s.interval <= 0 {
		return &errors.ValidationError{Field: "interval", Message: "must be positive"}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	go s.loop(runCtx, s.done)

	s.logger.Info("Scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("Scheduler stopped", nil)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger performs one run and logs its outcome
func (s *Scheduler) trigger(ctx context.Context) {
	_, err := s.runner.Run(ctx)
	switch {
	case err == nil:
	case errors.IsCooldown(err):
		s.logger.Info("Scheduled run skipped", map[string]interface{}{
			"reason": err.Error(),
		})
	case ctx.Err() != nil:
		s.logger.Info("Scheduled run cancelled", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		s.logger.Error("Scheduled run failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
