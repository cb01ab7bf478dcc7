package task

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a task does not exist or belongs to a
	// different owner. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("task not found")
	// ErrNothingToDelete is returned when a bulk delete matches no owned tasks.
	ErrNothingToDelete = errors.New("no valid tasks found to delete")
)

// ValidationError describes a field-level validation failure. Callers can
// branch on the field without parsing the message.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
