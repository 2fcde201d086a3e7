// ABOUTME: HealthMonitor tracks per-source delivery outcomes as a state machine
// ABOUTME: Each failure advances one state up to critical; any success resets to healthy

package health

import (
	"context"
	"time"
	"unicode/utf8"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/pkg/keylock"
	"digests-pipeline/pkg/metrics"
)

// SourceSink receives the health mirror for a source
type SourceSink interface {
	ApplyHealth(ctx context.Context, record domain.HealthRecord, fetchedAt time.Time) error
	List(ctx context.Context) ([]domain.Source, error)
}

// Outcome is the result of one collection attempt for a source
type Outcome struct {
	Success bool
	Reason  domain.FailureReason
	Err     error

	// At is when the attempt finished; zero means the monitor's clock
	At time.Time
}

// Succeeded builds a success outcome
func Succeeded(at time.Time) Outcome {
	return Outcome{Success: true, At: at}
}

// Failed builds a failure outcome classified from err
func Failed(err error, at time.Time) Outcome {
	return Outcome{Reason: errors.ReasonOf(err), Err: err, At: at}
}

// StateFor maps a consecutive failure count onto a health state
func StateFor(consecutiveFailures int) domain.HealthState {
	switch {
	case consecutiveFailures <= 0:
		return domain.HealthHealthy
	case consecutiveFailures == 1:
		return domain.HealthDegraded
	case consecutiveFailures == 2:
		return domain.HealthFailing
	default:
		return domain.HealthCritical
	}
}

// Next applies one outcome to a record and returns the updated copy.
// The state is recomputed from the record's own history only.
func Next(rec domain.HealthRecord, outcome Outcome) domain.HealthRecord {
	if outcome.Success {
		rec.ConsecutiveFailures = 0
		rec.LastSuccessAt = outcome.At
	} else {
		rec.ConsecutiveFailures++
		rec.LastFailureAt = outcome.At
		rec.LastReason = outcome.Reason
		if outcome.Err != nil {
			rec.LastError = summarize(outcome.Err.Error())
		} else {
			rec.LastError = string(outcome.Reason)
		}
	}
	rec.State = StateFor(rec.ConsecutiveFailures)
	rec.UpdatedAt = outcome.At
	return rec
}

// Monitor owns HealthRecords; it is their only writer
type Monitor struct {
	store   interfaces.HealthStore
	sources SourceSink
	logger  interfaces.Logger
	metrics *metrics.Manager
	now     func() time.Time
	locks   keylock.Locker
}

// Option configures a Monitor
type Option func(*Monitor)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithMetrics publishes health levels
func WithMetrics(mm *metrics.Manager) Option {
	return func(m *Monitor) { m.metrics = mm }
}

// NewMonitor creates a monitor; sources may be nil when no registry mirror is needed
func NewMonitor(store interfaces.HealthStore, sources SourceSink, logger interfaces.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = interfaces.NopLogger{}
	}
	m := &Monitor{
		store:   store,
		sources: sources,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Observe records one outcome for sourceID and returns the resulting state.
// Observations for the same source are serialized; different sources never contend.
func (m *Monitor) Observe(ctx context.Context, sourceID string, outcome Outcome) (domain.HealthState, error) {
	if outcome.At.IsZero() {
		outcome.At = m.now()
	}

	defer m.locks.Lock(sourceID)()

	rec, err := m.store.GetHealth(ctx, sourceID)
	if err != nil {
		if !errors.IsNotFound(err) {
			return "", errors.WrapError(err, "load health record")
		}
		rec = &domain.HealthRecord{SourceID: sourceID, State: domain.HealthHealthy}
	}

	previous := rec.State
	updated := Next(*rec, outcome)

	if err := m.store.PutHealth(ctx, &updated); err != nil {
		return "", errors.WrapError(err, "store health record")
	}

	if m.sources != nil {
		if err := m.sources.ApplyHealth(ctx, updated, outcome.At); err != nil && !errors.IsNotFound(err) {
			m.logger.Warn("Failed to mirror health onto source", map[string]interface{}{
				"source_id": sourceID,
				"error":     err.Error(),
			})
		}
	}

	m.metrics.SourceHealth(sourceID, updated.State.Level())

	if previous != updated.State {
		fields := map[string]interface{}{
			"source_id":            sourceID,
			"from":                 string(previous),
			"to":                   string(updated.State),
			"consecutive_failures": updated.ConsecutiveFailures,
		}
		if !outcome.Success {
			fields["reason"] = string(outcome.Reason)
		}
		if updated.State == domain.HealthCritical {
			m.logger.Error("Source health critical", fields)
		} else {
			m.logger.Info("Source health changed", fields)
		}
	}

	return updated.State, nil
}

// Get returns the record for a source, healthy when it has never been observed
func (m *Monitor) Get(ctx context.Context, sourceID string) (*domain.HealthRecord, error) {
	rec, err := m.store.GetHealth(ctx, sourceID)
	if errors.IsNotFound(err) {
		return &domain.HealthRecord{SourceID: sourceID, State: domain.HealthHealthy}, nil
	}
	return rec, err
}

// Report joins every registered source with its health record, ordered by source id
func (m *Monitor) Report(ctx context.Context) ([]domain.SourceHealth, error) {
	records, err := m.store.ListHealth(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.HealthRecord, len(records))
	for _, r := range records {
		byID[r.SourceID] = *r
	}

	if m.sources == nil {
		report := make([]domain.SourceHealth, 0, len(records))
		for _, r := range records {
			report = append(report, domain.SourceHealth{Source: domain.Source{ID: r.SourceID}, Record: *r})
		}
		return report, nil
	}

	sources, err := m.sources.List(ctx)
	if err != nil {
		return nil, err
	}

	report := make([]domain.SourceHealth, 0, len(sources))
	for _, src := range sources {
		rec, ok := byID[src.ID]
		if !ok {
			rec = domain.HealthRecord{SourceID: src.ID, State: domain.HealthHealthy}
		}
		report = append(report, domain.SourceHealth{Source: src, Record: rec})
	}
	return report, nil
}

// summarize bounds stored error text, cutting on a rune boundary
func summarize(msg string) string {
	const limit = 256
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "…"
}
