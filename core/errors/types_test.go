package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"digests-pipeline/core/domain"
)

func TestNotFoundError_Error(t *testing.T) {
	err := &NotFoundError{
		Resource: "article",
		ID:       "123",
	}

	expected := "article not found: 123"
	if err.Error() != expected {
		t.Errorf("NotFoundError.Error() = %v, want %v", err.Error(), expected)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Field:   "feed_url",
		Message: "must be absolute",
	}

	expected := "validation error on field 'feed_url': must be absolute"
	if err.Error() != expected {
		t.Errorf("ValidationError.Error() = %v, want %v", err.Error(), expected)
	}
}

func TestExternalAPIError_Error(t *testing.T) {
	err := &ExternalAPIError{
		StatusCode: 503,
		Message:    "service unavailable",
		API:        "openai",
	}

	expected := "external API error from openai: 503 - service unavailable"
	if err.Error() != expected {
		t.Errorf("ExternalAPIError.Error() = %v, want %v", err.Error(), expected)
	}
}

func TestCooldownError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("trigger: %w", &CooldownError{Remaining: 90 * time.Second})

	if !errors.Is(err, ErrCooldownActive) {
		t.Error("wrapped CooldownError should match ErrCooldownActive")
	}
	if !IsCooldown(err) {
		t.Error("IsCooldown should return true")
	}
	if IsCooldown(errors.New("other")) {
		t.Error("IsCooldown should return false for unrelated errors")
	}

	var cooldown *CooldownError
	if !errors.As(err, &cooldown) || cooldown.Remaining != 90*time.Second {
		t.Errorf("expected remaining 90s, got %+v", cooldown)
	}
}

func TestCooldownError_InProgressMessage(t *testing.T) {
	err := &CooldownError{InProgress: true}
	expected := "collection cooldown active: a run is already in progress"
	if err.Error() != expected {
		t.Errorf("CooldownError.Error() = %v, want %v", err.Error(), expected)
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &FetchError{SourceID: "src", Reason: domain.ReasonNetwork, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("FetchError should unwrap to its cause")
	}
	if err.Error() != "fetch src (network): connection refused" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	status := &FetchError{SourceID: "src", Reason: domain.ReasonHTTPStatus, StatusCode: 404}
	if status.Error() != "fetch src (http_status): unexpected status 404" {
		t.Errorf("unexpected message: %s", status.Error())
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureReason
	}{
		{"nil", nil, domain.ReasonNone},
		{"timeout fetch", &FetchError{Reason: domain.ReasonTimeout}, domain.ReasonTimeout},
		{"wrapped status", WrapError(&FetchError{Reason: domain.ReasonHTTPStatus}, "collect"), domain.ReasonHTTPStatus},
		{"parse", &ParseError{SourceID: "x", Err: errors.New("bad xml")}, domain.ReasonParse},
		{"unknown", errors.New("boom"), domain.ReasonNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonOf(tt.err); got != tt.want {
				t.Errorf("ReasonOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(WrapError(&NotFoundError{Resource: "source", ID: "abc"}, "lookup")) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsNotFound(errors.New("some other error")) {
		t.Error("IsNotFound should return false for other errors")
	}
}

func TestIsValidationAndExternal(t *testing.T) {
	if !IsValidation(&ValidationError{Field: "id"}) {
		t.Error("IsValidation should return true")
	}
	if !IsExternalAPI(&ExternalAPIError{StatusCode: 500}) {
		t.Error("IsExternalAPI should return true")
	}
	if IsParse(&FetchError{}) {
		t.Error("IsParse should return false for FetchError")
	}
}

func TestWrapError_Nil(t *testing.T) {
	if WrapError(nil, "context") != nil {
		t.Error("WrapError(nil) should return nil")
	}
}
