package types

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error types
type ErrorType string

const (
	ErrTypeConfig       ErrorType = "CONFIG_ERROR"
	ErrTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrTypeInvalidValue ErrorType = "INVALID_VALUE"
	ErrTypeNetwork      ErrorType = "NETWORK_ERROR"
	ErrTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeBadRequest   ErrorType = "BAD_REQUEST"
	ErrTypeTimeout      ErrorType = "TIMEOUT"
)

var (
	// ErrCursorInvalidated is returned when the variant that minted a cursor
	// failed; pagination for that owner must restart from the first page.
	ErrCursorInvalidated = errors.New("cursor invalidated: restart pagination from the first page")

	// ErrStaleSession is returned when results arrive for a session that has
	// been superseded by a newer one.
	ErrStaleSession = errors.New("stale session: results discarded")
)

// StandardError provides consistent error formatting
type StandardError struct {
	Type    ErrorType
	Message string
	Details map[string]any
	Cause   error
}

func (e *StandardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

func NewConfigError(msg string, cause error) error {
	return &StandardError{
		Type:    ErrTypeConfig,
		Message: msg,
		Cause:   cause,
	}
}

func NewValidationError(field, msg string) error {
	return &StandardError{
		Type:    ErrTypeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

func NewInvalidValueError(field, value, msg string) error {
	return &StandardError{
		Type:    ErrTypeInvalidValue,
		Message: fmt.Sprintf("invalid value for %s: %s (%s)", field, value, msg),
		Details: map[string]any{"field": field, "value": value},
	}
}

func NewNetworkError(url string, cause error) error {
	return &StandardError{
		Type:    ErrTypeNetwork,
		Message: fmt.Sprintf("network request to %s failed", url),
		Details: map[string]any{"url": url},
		Cause:   cause,
	}
}

func NewNotFoundError(resource string) error {
	return &StandardError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]any{"resource": resource},
	}
}

func NewBadRequestError(msg string) error {
	return &StandardError{
		Type:    ErrTypeBadRequest,
		Message: msg,
	}
}

func NewTimeoutError(operation string) error {
	return &StandardError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("%s operation timed out", operation),
		Details: map[string]any{"operation": operation},
	}
}

func NewInternalError(msg string, cause error) error {
	return &StandardError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TransportError is a failed GraphQL round trip: network failure, non-2xx
// status, non-JSON body, GraphQL errors or a missing data field.
type TransportError struct {
	Method     string
	HTTPStatus int // 0 when no response was received
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("transport")
	if e.Method != "" {
		b.WriteString(" " + e.Method)
	}
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " HTTP %d", e.HTTPStatus)
	}
	b.WriteString(": " + e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ShapeMismatchError reports that a variant's extraction did not recognise
// the response, which usually means the remote schema drifted.
type ShapeMismatchError struct {
	Variant string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("unexpected response shape for variant %q", e.Variant)
}

// AllVariantsExhaustedError is returned when every candidate variant of a
// logical operation failed.
type AllVariantsExhaustedError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *AllVariantsExhaustedError) Error() string {
	return fmt.Sprintf("%s: all variants failed after %d attempts: %v", e.Operation, e.Attempts, e.Last)
}

func (e *AllVariantsExhaustedError) Unwrap() error {
	return e.Last
}

// PartialBatchFailure lists the entity keys a batch could not resolve. The
// accompanying result map still holds every other key.
type PartialBatchFailure struct {
	Failed []string
	Total  int
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("batch partially failed: %d of %d keys unresolved", len(e.Failed), e.Total)
}
