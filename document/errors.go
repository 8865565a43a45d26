package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when the engine has no document store.
	ErrNotInitialized = errors.New("document store not initialized")

	// ErrNoDocument is returned when no document is bound.
	ErrNoDocument = errors.New("no active document")
)

// ValidationError reports bad or missing arguments. Nothing is mutated or
// persisted when an operation returns one.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func invalid(op, format string, args ...any) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
