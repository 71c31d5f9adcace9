package reconcile

import (
	"errors"
	"fmt"
)

// ConflictError reports a unique-constraint violation, typically two saves of the
// same (title, user) racing each other.
type ConflictError struct {
	Entity  string
	Message string
	Cause   error
}

func (e *ConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conflict on %s: %s: %v", e.Entity, e.Message, e.Cause)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Entity, e.Message)
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// IsConflict reports whether err is, or wraps, a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
