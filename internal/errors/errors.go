// Package errors defines the error taxonomy shared by the storefront layers.
// Handlers are the only place these are turned into HTTP statuses.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record lookup misses.
	ErrNotFound = stderrors.New("not found")

	// ErrDuplicate is returned when a write collides with an existing record,
	// e.g. a second order for the same payment reference.
	ErrDuplicate = stderrors.New("duplicate record")

	ErrUnauthorized = stderrors.New("unauthorized")
	ErrForbidden    = stderrors.New("forbidden")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// UpstreamError reports a failed call to an external service such as the
// payment gateway.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

// NewUpstreamError wraps err as a failure of the named upstream service.
func NewUpstreamError(service string, statusCode int, message string, err error) *UpstreamError {
	return &UpstreamError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Service, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// IsDuplicate reports whether err is, or wraps, ErrDuplicate.
func IsDuplicate(err error) bool {
	return stderrors.Is(err, ErrDuplicate)
}

func IsUnauthorized(err error) bool {
	return stderrors.Is(err, ErrUnauthorized)
}

func IsForbidden(err error) bool {
	return stderrors.Is(err, ErrForbidden)
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsUpstreamError extracts an *UpstreamError from err's chain.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if stderrors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
