// ABOUTME: Liveness endpoint for load balancers and orchestrators
// ABOUTME: Reports process health only, never source health

package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"digests-pipeline/api/dto/responses"
)

// RegisterHealthz registers the liveness check
func RegisterHealthz(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "healthz",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness check",
		Tags:        []string{"Ops"},
	}, func(ctx context.Context, _ *struct{}) (*HealthzOutput, error) {
		return &HealthzOutput{Body: responses.HealthzResponse{Status: "ok"}}, nil
	})
}

// HealthzOutput is the liveness body
type HealthzOutput struct {
	Body responses.HealthzResponse
}
