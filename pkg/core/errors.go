// Package core provides the tutor middleware: the per-turn pre-process and
// post-process pipeline that grounds and validates model output.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProfileStore indicates that a profile store operation failed.
	ErrProfileStore = errors.New("profile store operation failed")

	// ErrLLMOperation indicates that an LLM operation failed.
	ErrLLMOperation = errors.New("llm operation failed")
)

// TutorError wraps errors with operation context.
//
// Example:
//
//	err := &TutorError{Op: "PreProcessMessage", Err: ErrInvalidInput}
//	// Error() returns: "tutorguard: PreProcessMessage: invalid input"
type TutorError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
func (e *TutorError) Error() string {
	return fmt.Sprintf("tutorguard: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As work.
func (e *TutorError) Unwrap() error {
	return e.Err
}

// NewTutorError wraps err with operation context, or returns nil if err is nil.
func NewTutorError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TutorError{Op: op, Err: err}
}
