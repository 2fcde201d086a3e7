// ABOUTME: Collection trigger and source health handlers
// ABOUTME: A cooldown rejection is reported as 429 so clients can back off

package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"digests-pipeline/api/dto/mappers"
	"digests-pipeline/api/dto/responses"
	"digests-pipeline/core/domain"
	"digests-pipeline/core/pipeline"
)

// HealthReporter lists every source joined with its health record
type HealthReporter interface {
	Report(ctx context.Context) ([]domain.SourceHealth, error)
}

// CollectionHandler exposes the pipeline's trigger and health report
type CollectionHandler struct {
	runner   pipeline.Runner
	reporter HealthReporter
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(runner pipeline.Runner, reporter HealthReporter) *CollectionHandler {
	return &CollectionHandler{runner: runner, reporter: reporter}
}

// RegisterRoutes registers the collection and source health routes
func (h *CollectionHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "triggerCollection",
		Method:      http.MethodPost,
		Path:        "/collections",
		Summary:     "Run a collection now",
		Description: "Collects every enabled source, then enriches, clusters and stores new articles. Rejected while a run is in progress or the cooldown is active.",
		Tags:        []string{"Pipeline"},
	}, h.TriggerCollection)

	huma.Register(api, huma.Operation{
		OperationID: "sourcesHealth",
		Method:      http.MethodGet,
		Path:        "/sources/health",
		Summary:     "Source health report",
		Description: "Lists every registered source with its current health state",
		Tags:        []string{"Sources"},
	}, h.SourcesHealth)
}

// TriggerCollectionOutput is the run summary
type TriggerCollectionOutput struct {
	Body responses.RunSummaryResponse
}

// TriggerCollection handles POST /collections
func (h *CollectionHandler) TriggerCollection(ctx context.Context, _ *struct{}) (*TriggerCollectionOutput, error) {
	summary, err := h.runner.Run(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &TriggerCollectionOutput{Body: mappers.ToRunSummaryResponse(summary)}, nil
}

// SourcesHealthOutput is the health report
type SourcesHealthOutput struct {
	Body responses.SourcesHealthResponse
}

// SourcesHealth handles GET /sources/health
func (h *CollectionHandler) SourcesHealth(ctx context.Context, _ *struct{}) (*SourcesHealthOutput, error) {
	report, err := h.reporter.Report(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &SourcesHealthOutput{Body: mappers.ToSourceHealthResponses(report)}, nil
}
