// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrValidation     = errors.New("validation failed")

	// Provider errors.
	ErrProviderRefused = errors.New("provider refused to respond")

	// Pipeline errors.
	ErrPipelineBusy = errors.New("pipeline already running for email")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ProviderError reports a failed completion call: the provider was unreachable,
// rejected the request, or answered with something that is not a completion.
type ProviderError struct {
	Err        error
	Provider   string
	StatusCode int
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call could succeed.
func (e *ProviderError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case errors.Is(e.Err, context.DeadlineExceeded):
		return true
	}
	return false
}

// MalformedOutputError is returned when no strategy could recover structured data
// from provider text. Preview is bounded and has control characters escaped.
type MalformedOutputError struct {
	Preview string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("could not parse structured output from response: %s", e.Preview)
}

// ExtractionCause classifies why a field extractor failed.
type ExtractionCause string

// Extraction causes.
const (
	CauseProvider  ExtractionCause = "provider_error"
	CauseRefused   ExtractionCause = "provider_refused"
	CauseMalformed ExtractionCause = "malformed_output"
	CauseUnknown   ExtractionCause = "unknown"
)

// ExtractionError reports that a field extractor could not produce a value.
type ExtractionError struct {
	Err   error
	Field string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Cause reports which failure class produced the error.
func (e *ExtractionError) Cause() ExtractionCause {
	var malformed *MalformedOutputError
	var provider *ProviderError
	switch {
	case errors.Is(e.Err, ErrProviderRefused):
		return CauseRefused
	case errors.As(e.Err, &malformed):
		return CauseMalformed
	case errors.As(e.Err, &provider):
		return CauseProvider
	}
	return CauseUnknown
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable()
	}

	return false
}
