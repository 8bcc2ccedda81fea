package requisition

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("requisition not found")
	// ErrConflict is returned when a save races with another writer.
	ErrConflict = errors.New("requisition was modified concurrently")
)

// ValidationError rejects an action before any state is touched.
type ValidationError struct {
	Op  string
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(op, format string, args ...interface{}) error {
	return &ValidationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
