// Package errors wraps github.com/pkg/errors so that every error leaving a package carries a
// stack trace, and re-exports the standard library's inspection helpers.
package errors

import (
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// Frame is a single frame of a stack trace.
type Frame = pkgerrors.Frame

// StackTrace is a stack of Frames from innermost (newest) to outermost (oldest).
type StackTrace = pkgerrors.StackTrace

// StackTracer is implemented by errors that carry a stack trace.
type StackTracer interface {
	StackTrace() StackTrace
}

// New returns an error with the supplied message and a stack trace.
func New(message string) error {
	return pkgerrors.New(message)
}

// Errorf formats according to a format specifier and returns the string as a value that
// satisfies error, with a stack trace.  %w is supported.
func Errorf(format string, args ...interface{}) error {
	return pkgerrors.WithStack(fmt.Errorf(format, args...))
}

// Wrap returns an error annotating err with a stack trace and the supplied message.  If err is
// nil, Wrap returns nil.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf returns an error annotating err with a stack trace and the format specifier.  If err is
// nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// WithStack annotates err with a stack trace at the point WithStack was called.
func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}

// EnsureStack adds a stack trace to err if it does not already have one.  Use it on errors
// returned from code outside of this module.
func EnsureStack(err error) error {
	if err == nil {
		return nil
	}
	var st StackTracer
	if errors.As(err, &st) {
		return err
	}
	return pkgerrors.WithStack(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join returns an error that wraps the given errors.  Nil errors are discarded.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// JoinInto joins err into *dst.
func JoinInto(dst *error, err error) {
	if err == nil {
		return
	}
	*dst = Join(*dst, err)
}

// Close closes c and joins any error it returns into *retErr, annotated with the provided
// message.  It is meant to be deferred:
//
//	defer errors.Close(&retErr, f, "close %v", name)
func Close(retErr *error, c io.Closer, format string, args ...interface{}) {
	if err := c.Close(); err != nil {
		JoinInto(retErr, Wrapf(err, format, args...))
	}
}

// ForEachStackFrame calls f on each frame of the outermost stack trace found in err.
func ForEachStackFrame(err error, f func(Frame)) {
	var st StackTracer
	if !errors.As(err, &st) {
		return
	}
	for _, frame := range st.StackTrace() {
		f(frame)
	}
}
