// Package errors provides standardized error handling for the question
// resolution pipeline.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Connectivity covers unreachable backends, timeouts and transport errors.
	ErrCodeConnectivity ErrorCode = "CONNECTIVITY"

	// Policy marks a generated query rejected by the read-only validator.
	ErrCodePolicy ErrorCode = "POLICY_VIOLATION"

	// EmptyResult marks a query that executed cleanly but matched nothing.
	ErrCodeEmptyResult ErrorCode = "EMPTY_RESULT"

	// PartialData marks a dataset load that stopped before completion.
	ErrCodePartialData ErrorCode = "PARTIAL_DATA"

	// ProviderExhausted marks a completion provider that is unavailable,
	// unconfigured or over quota.
	ErrCodeProviderExhausted ErrorCode = "PROVIDER_EXHAUSTED"

	ErrCodeCacheFailure     ErrorCode = "CACHE_FAILURE"
	ErrCodeSchemaValidation ErrorCode = "SCHEMA_VALIDATION_FAILED"
	ErrCodeSearchFailed     ErrorCode = "WEB_SEARCH_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConnectivityError creates a retryable transport/backend error.
func NewConnectivityError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConnectivity,
		Message:   "Backend unreachable or timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPolicyError creates a non-retryable validator rejection.
func NewPolicyError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePolicy,
		Message:   "Generated query rejected by read-only policy",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyResultError marks a clean execution with no matching rows.
func NewEmptyResultError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyResult,
		Message:   "Query returned no rows",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPartialDataError marks an incomplete dataset load.
func NewPartialDataError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePartialData,
		Message:   "Dataset loaded partially",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderExhaustedError marks an unavailable completion provider.
func NewProviderExhaustedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderExhausted,
		Message:   "Completion provider unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheFailureError marks a cache read/write problem. Callers treat the
// cache as best-effort, so these never abort a request.
func NewCacheFailureError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheFailure,
		Message:   "Cache operation failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaValidationError marks a fetched page that failed schema validation.
func NewSchemaValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaValidation,
		Message:   "Page payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchFailedError marks a web search provider failure.
func NewSearchFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchFailed,
		Message:   "Web search request failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// Classify maps an arbitrary execution error onto a StandardError. Already
// classified errors pass through unchanged; timeouts and network failures
// become Connectivity; everything else becomes a non-retryable Connectivity
// error carrying the original message.
func Classify(err error) *StandardError {
	if err == nil {
		return nil
	}

	var std *StandardError
	if errors.As(err, &std) {
		return std
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewConnectivityError(err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewConnectivityError(err.Error())
	}

	se := NewConnectivityError(err.Error())
	se.Retryable = false
	return se
}

// IsCode reports whether err carries the given classified code.
func IsCode(err error, code ErrorCode) bool {
	var std *StandardError
	if errors.As(err, &std) {
		return std.Code == code
	}
	return false
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var std *StandardError
	if errors.As(err, &std) {
		return std.Retryable
	}
	return false
}
