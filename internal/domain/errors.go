package domain

import (
	"errors"
	"fmt"
)

// ErrThreadNotFound is returned when an operation targets an unknown thread id.
var ErrThreadNotFound = errors.New("thread not found")

// ThreadNotFound wraps ErrThreadNotFound with the offending id.
func ThreadNotFound(threadID string) error {
	return fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
}

// ValidationError reports malformed input rejected at the boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid payload: %s %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err (or any error in its chain) is a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
