// Package errors provides the error helpers used across the codebase.
// It is a thin layer over github.com/pkg/errors so call sites get stack
// traces without importing two error packages.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

type StackTracer interface {
	StackTrace() errors.StackTrace
}

// New returns an error with the supplied message and a stack trace.
// The message is treated as a format string when arguments are given.
func New(message string, args ...interface{}) error {
	if len(args) == 0 {
		return errors.New(message)
	}
	return errors.Errorf(message, args...)
}

// Wrap returns an error annotating err with a stack trace at the point
// Wrap is called, and the supplied message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf is Wrap with a format string message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// WithMessage annotates err with a message without adding a new stack trace.
func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Cause returns the underlying cause of the error, if possible.
func Cause(err error) error {
	return errors.Cause(err)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Sentinel is an error type meant for constant error values that callers
// match with Is.
type Sentinel string

func (s Sentinel) Error() string {
	return string(s)
}

// Wrap attaches a cause to the sentinel while keeping both matchable.
func (s Sentinel) Wrap(err error) error {
	return fmt.Errorf("%w: %w", s, err)
}
