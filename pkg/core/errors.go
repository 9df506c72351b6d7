package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotFound     = errors.New("note not found")
	ErrInvalidState = errors.New("invalid state")
	ErrClosed       = errors.New("manager is closed")
)

// PersistenceError reports a failed store round trip. The in-memory
// collection is kept as it was when the failing operation was issued.
type PersistenceError struct {
	Op  string // "fetch" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DecodeError reports a malformed image blob. It is logged, never returned
// from the lenient decode path.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed image blob: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
