package queue

import (
	"errors"
	"fmt"
)

var (
	ErrFrozen      = errors.New("appointment is frozen")
	ErrNotFound    = errors.New("appointment not found")
	ErrNumberTaken = errors.New("appointment number already in use")
)

// ValidationError reports caller input rejected before any state change.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
