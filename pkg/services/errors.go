// Package services provides standardized error types shared by the HTTP
// surface and the engine's service layer.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors, mapped to 4xx responses.
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrSiteIDRequired    = errors.New("site ID is required")
	ErrVisitorIDRequired = errors.New("visitor ID is required")
	ErrEventTypeRequired = errors.New("event type is required")
	ErrTagNameRequired   = errors.New("tag name is required")
	ErrEmptyBatch        = errors.New("event batch cannot be empty")
	ErrBatchTooLarge     = errors.New("event batch exceeds the maximum size")
	ErrInvalidDateRange  = errors.New("invalid date range")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrSiteIDRequired) ||
		errors.Is(err, ErrVisitorIDRequired) ||
		errors.Is(err, ErrEventTypeRequired) ||
		errors.Is(err, ErrTagNameRequired) ||
		errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidPagination)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
