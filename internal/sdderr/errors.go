// Package sdderr defines the error taxonomy shared by the engine packages.
//
// Every error returned by the workflow, gate, compliance, and validation
// packages wraps exactly one of the sentinels below, so callers can branch
// with errors.Is regardless of the message.
package sdderr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers unknown stages, malformed modes, unknown
	// article ids, and non-monotonic gate transitions.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStateMissing is returned by write paths that target a workflow
	// or gate that does not exist. Read paths return nil instead.
	ErrStateMissing = errors.New("state missing")

	// ErrPersistence wraps any underlying I/O failure on load or save.
	ErrPersistence = errors.New("persistence failure")
)

// Invalid builds an ErrInvalidInput error with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Missing builds an ErrStateMissing error with a formatted message.
func Missing(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStateMissing, fmt.Sprintf(format, args...))
}

// Persistence wraps an I/O error so that both ErrPersistence and the
// original cause remain reachable through errors.Is / errors.As.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
