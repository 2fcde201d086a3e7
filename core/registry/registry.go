// ABOUTME: SourceRegistry holds the configuration and health mirror of every feed source
// ABOUTME: Pure data access over the SourceStore; sources are disabled, never deleted

package registry

import (
	"context"
	"sort"
	"time"

	"digests-pipeline/core/domain"
	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
	"digests-pipeline/pkg/keylock"
)

// Registry provides access to configured sources
type Registry struct {
	store  interfaces.SourceStore
	logger interfaces.Logger

	// locks serialize read-modify-write per source; stores only offer get/put
	locks keylock.Locker
}

// New creates a registry over store
func New(store interfaces.SourceStore, logger interfaces.Logger) *Registry {
	if logger == nil {
		logger = interfaces.NopLogger{}
	}
	return &Registry{store: store, logger: logger}
}

// Register validates and stores a new source, or updates the configuration of an existing one.
// Health fields of an existing source are preserved.
func (r *Registry) Register(ctx context.Context, src domain.Source) error {
	if err := src.Validate(); err != nil {
		return &errors.ValidationError{Field: "source", Message: err.Error()}
	}

	defer r.locks.Lock(src.ID)()

	existing, err := r.store.GetSource(ctx, src.ID)
	switch {
	case err == nil:
		src.Health = existing.Health
		src.LastFetchedAt = existing.LastFetchedAt
		src.ConsecutiveFailures = existing.ConsecutiveFailures
	case errors.IsNotFound(err):
		src.Health = domain.HealthHealthy
		src.ConsecutiveFailures = 0
	default:
		return errors.WrapError(err, "load source")
	}

	if src.Health == "" {
		src.Health = domain.HealthHealthy
	}

	return r.store.PutSource(ctx, &src)
}

// Seed registers every source, logging and skipping invalid entries.
// Returns the number of sources registered.
func (r *Registry) Seed(ctx context.Context, sources []domain.Source) int {
	registered := 0
	for _, src := range sources {
		if err := r.Register(ctx, src); err != nil {
			r.logger.Warn("Skipping invalid source", map[string]interface{}{
				"source_id": src.ID,
				"error":     err.Error(),
			})
			continue
		}
		registered++
	}
	return registered
}

// Get returns a single source
func (r *Registry) Get(ctx context.Context, id string) (*domain.Source, error) {
	return r.store.GetSource(ctx, id)
}

// List returns every source ordered by id
func (r *Registry) List(ctx context.Context) ([]domain.Source, error) {
	ptrs, err := r.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(ptrs))
	for _, p := range ptrs {
		sources = append(sources, *p)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })
	return sources, nil
}

// Enabled returns the sources that should be collected, critical ones included
func (r *Registry) Enabled(ctx context.Context) ([]domain.Source, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]domain.Source, 0, len(all))
	for _, src := range all {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled, nil
}

// SetEnabled toggles collection of a source
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	defer r.locks.Lock(id)()

	src, err := r.store.GetSource(ctx, id)
	if err != nil {
		return err
	}
	src.Enabled = enabled
	return r.store.PutSource(ctx, src)
}

// ApplyHealth mirrors a health record onto its source. Only the health monitor calls this.
func (r *Registry) ApplyHealth(ctx context.Context, record domain.HealthRecord, fetchedAt time.Time) error {
	defer r.locks.Lock(record.SourceID)()

	src, err := r.store.GetSource(ctx, record.SourceID)
	if err != nil {
		return err
	}
	src.Health = record.State
	src.ConsecutiveFailures = record.ConsecutiveFailures
	src.LastFetchedAt = fetchedAt
	return r.store.PutSource(ctx, src)
}
