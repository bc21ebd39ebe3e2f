package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation   ErrorCategory = "validation"   // Invalid input
	ErrCatExecution    ErrorCategory = "execution"    // Runtime failure
	ErrCatTimeout      ErrorCategory = "timeout"      // Operation timed out
	ErrCatRateLimit    ErrorCategory = "rate_limit"   // Backend rate limited
	ErrCatCollaborator ErrorCategory = "collaborator" // Model or service misbehaved
	ErrCatAuth         ErrorCategory = "auth"         // Authentication failure
	ErrCatNetwork      ErrorCategory = "network"      // Network connectivity
	ErrCatNotFound     ErrorCategory = "not_found"    // Resource not found
	ErrCatCancelled    ErrorCategory = "cancelled"    // Caller gave up
	ErrCatInternal     ErrorCategory = "internal"     // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeTimeout,
		Message:   message,
		Retryable: true,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      CodeRateLimited,
		Message:   message,
		Retryable: true,
	}
}

// ErrCollaborator creates an error for a model or service that answered
// with something unusable. Retrying the same prompt rarely helps.
func ErrCollaborator(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCollaborator,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrDegraded records that a step fell back to its safe default.
// It is logged and counted, never returned from a step.
func ErrDegraded(step Step, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatCollaborator,
		Code:      CodeDegraded,
		Message:   fmt.Sprintf("step %s degraded", step),
		Retryable: false,
		Cause:     cause,
		Details:   map[string]interface{}{"step": string(step)},
	}
}

// ErrNetwork creates a network error.
func ErrNetwork(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatNetwork,
		Code:      CodeNetwork,
		Message:   message,
		Retryable: true,
	}
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      CodeAuthFailed,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodeNotFound,
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrCancelled creates an error for a run aborted by its caller.
func ErrCancelled(cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatCancelled,
		Code:      CodeCancelled,
		Message:   "run cancelled",
		Retryable: false,
		Cause:     cause,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	if errors.Is(err, context.Canceled) {
		return ErrCatCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCatTimeout
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeTimeout       = "TIMEOUT"
	CodeRateLimited   = "RATE_LIMITED"
	CodeNetwork       = "NETWORK"
	CodeAuthFailed    = "AUTH_FAILED"
	CodeNotFound      = "NOT_FOUND"
	CodeCancelled     = "CANCELLED"
	CodeStepLimit     = "STEP_LIMIT"
	CodeUnknownStep   = "UNKNOWN_STEP"
	CodeStepPanic     = "STEP_PANIC"
	CodeInvalidConfig = "INVALID_CONFIG"

	// Input validation
	CodeEmptyQuestion = "EMPTY_QUESTION"
	CodeInvalidInput  = "INVALID_INPUT"

	// Collaborator failures
	CodeBackendFailed      = "BACKEND_FAILED"
	CodeNoBackends         = "NO_BACKENDS"
	CodeUnparseable        = "UNPARSEABLE_OUTPUT"
	CodeEmptyOutput        = "EMPTY_OUTPUT"
	CodeDegraded           = "DEGRADED"
	CodeIndexBuild         = "INDEX_BUILD_FAILED"
	CodeQueryFailed        = "QUERY_FAILED"
	CodeSchemaUnreadable   = "SCHEMA_UNREADABLE"
	CodeUnknownBackend     = "UNKNOWN_BACKEND"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
)
