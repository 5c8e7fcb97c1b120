package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is missing or owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when no valid session or credentials are present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
