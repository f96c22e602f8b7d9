// Package core provides the main companion client and conversation pipeline.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageOperation indicates that a profile store operation failed.
	// Storage failures are fatal for the current call; there is no retry.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrCompletionFailed indicates that the completion provider failed to
	// produce a reply. Nothing is persisted for the exchange in that case.
	ErrCompletionFailed = errors.New("completion failed")

	// ErrUnknownPersona indicates a persona key missing from the registry.
	ErrUnknownPersona = errors.New("unknown persona")

	// ErrUnknownMode indicates a mode key missing from the registry.
	ErrUnknownMode = errors.New("unknown mode")
)

// CompanionError wraps errors with operation context.
//
// It records which client operation failed, making error messages more
// informative for debugging.
type CompanionError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "companion: <Op>: <Err>"
func (e *CompanionError) Error() string {
	return fmt.Sprintf("companion: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with CompanionError.
func (e *CompanionError) Unwrap() error {
	return e.Err
}

// NewCompanionError creates a new CompanionError wrapping the given error.
//
// If err is nil, returns nil, which allows safe unconditional wrapping.
func NewCompanionError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CompanionError{
		Op:  op,
		Err: err,
	}
}

// ValidationError reports a persona or mode key that is not present in the
// registry. It carries the list of valid keys so transports can surface
// them to the user. No state is mutated when a ValidationError is returned.
type ValidationError struct {
	// Kind is the matching sentinel: ErrUnknownPersona or ErrUnknownMode.
	Kind error

	// Key is the rejected key.
	Key string

	// Valid holds the registered keys in sorted order.
	Valid []string
}

// Error returns a user-presentable message listing the valid keys.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v %q: valid options are %s", e.Kind, e.Key, strings.Join(e.Valid, ", "))
}

// Unwrap returns the sentinel error, so errors.Is(err, ErrUnknownPersona)
// and errors.Is(err, ErrUnknownMode) work as expected.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}
