// ABOUTME: Custom error types for the ingestion pipeline and its read side
// ABOUTME: Separates expected control flow (cooldown) from fetch, parse and lookup failures

package errors

import (
	"errors"
	"fmt"
	"time"

	"digests-pipeline/core/domain"
)

// ErrCooldownActive signals that a collection run was rejected by the run gate.
// It is an expected outcome, not a failure.
var ErrCooldownActive = errors.New("collection cooldown active")

// ErrCacheMiss is returned by cache adapters when a key is absent or expired
var ErrCacheMiss = errors.New("cache: key not found")

// CooldownError carries how long until the gate reopens
type CooldownError struct {
	Remaining time.Duration

	// InProgress is set when another run currently holds the gate
	InProgress bool
}

// Error implements the error interface
func (e *CooldownError) Error() string {
	if e.InProgress {
		return "collection cooldown active: a run is already in progress"
	}
	return fmt.Sprintf("collection cooldown active: retry in %s", e.Remaining.Round(time.Second))
}

// Is lets errors.Is(err, ErrCooldownActive) match
func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ExternalAPIError represents an error from an external API
type ExternalAPIError struct {
	StatusCode int
	Message    string
	API        string
}

// Error implements the error interface
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("external API error from %s: %d - %s", e.API, e.StatusCode, e.Message)
}

// FetchError is a transient collection failure for one source
type FetchError struct {
	SourceID   string
	URL        string
	StatusCode int
	Reason     domain.FailureReason
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s): unexpected status %d", e.SourceID, e.Reason, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.SourceID, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s)", e.SourceID, e.Reason)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError means a document could not be read as any supported feed syntax
type ParseError struct {
	SourceID string
	Err      error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed %s: %v", e.SourceID, e.Err)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsExternalAPI checks if an error is an ExternalAPIError
func IsExternalAPI(err error) bool {
	var apiErr *ExternalAPIError
	return errors.As(err, &apiErr)
}

// IsCooldown checks if an error is a run gate rejection
func IsCooldown(err error) bool {
	return errors.Is(err, ErrCooldownActive)
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// IsParse checks if an error is a ParseError
func IsParse(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// ReasonOf classifies err into the failure reason recorded for health
func ReasonOf(err error) domain.FailureReason {
	if err == nil {
		return domain.ReasonNone
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Reason
	}
	if IsParse(err) {
		return domain.ReasonParse
	}
	return domain.ReasonNetwork
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
