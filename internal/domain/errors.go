package domain

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when the acting staff role may not perform an action.
var ErrForbidden = errors.New("forbidden")

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}
