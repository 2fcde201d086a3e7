// ABOUTME: HealthRecord domain model tracks per-source delivery outcomes
// ABOUTME: Defines the health states and the failure reasons surfaced to operators

package domain

import "time"

// HealthState is the operational status of a source
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthFailing  HealthState = "failing"
	HealthCritical HealthState = "critical"
)

// Level returns the severity of the state, 0 for healthy up to 3 for critical
func (s HealthState) Level() int {
	switch s {
	case HealthDegraded:
		return 1
	case HealthFailing:
		return 2
	case HealthCritical:
		return 3
	default:
		return 0
	}
}

// FailureReason distinguishes why a collection attempt failed
type FailureReason string

const (
	ReasonNone       FailureReason = ""
	ReasonNetwork    FailureReason = "network"
	ReasonTimeout    FailureReason = "timeout"
	ReasonHTTPStatus FailureReason = "http_status"
	ReasonParse      FailureReason = "parse"
	ReasonTooLarge   FailureReason = "too_large"
	// ReasonCanceled marks a fetch abandoned because the run itself was cancelled
	ReasonCanceled   FailureReason = "canceled"
)

// HealthRecord is the per-source health derived from fetch outcomes
type HealthRecord struct {
	SourceID            string        `json:"source_id"`
	State               HealthState   `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	LastFailureAt       time.Time     `json:"last_failure_at"`
	LastError           string        `json:"last_error,omitempty"`
	LastReason          FailureReason `json:"last_reason,omitempty"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// SourceHealth joins a source with its current health record
type SourceHealth struct {
	Source Source       `json:"source"`
	Record HealthRecord `json:"record"`
}
