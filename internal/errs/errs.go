// Public domain.

// Package errs classifies pipeline failures by how far their effect reaches.
//
// A data error is scoped to one frame or one target and never aborts a
// cycle.  An I/O error is fatal on the first poll of a directory and is
// retried on later polls.  A config error is fatal before any loop starts.
// A tool error is a non-zero exit from a delegated subprocess.
//
// Errors are matched with errors.Is against the Err* kind values:
//
//	if errors.Is(err, errs.ErrData) {
//		// log and skip the target
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kinds.  Every *Error unwraps to exactly one of these.
var (
	ErrData   = errors.New("data error")
	ErrIO     = errors.New("i/o error")
	ErrConfig = errors.New("config error")
	ErrTool   = errors.New("external tool error")
)

// Error is a classified failure.
type Error struct {
	Kind    error  // one of the Err* values
	Op      string // operation that failed, e.g. "frame.Load"
	Subject string // file, target, setting or tool concerned
	Code    int    // exit code, tool errors only
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	s := e.Kind.Error()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Subject != "" {
		s += " (" + e.Subject + ")"
	}
	if e.Kind == ErrTool && e.Code != 0 {
		s += fmt.Sprintf(" exit status %d", e.Code)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Data returns a data error.
func Data(op, subject string, err error) error {
	return &Error{Kind: ErrData, Op: op, Subject: subject, Err: err}
}

// Dataf returns a data error with a formatted cause.
func Dataf(op, subject, format string, a ...interface{}) error {
	return Data(op, subject, fmt.Errorf(format, a...))
}

// IO returns an i/o error.
func IO(op, subject string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Subject: subject, Err: err}
}

// Config returns a config error.
func Config(op, subject string, err error) error {
	return &Error{Kind: ErrConfig, Op: op, Subject: subject, Err: err}
}

// Tool returns a tool error for a subprocess that exited with code.
func Tool(op, subject string, code int, err error) error {
	return &Error{Kind: ErrTool, Op: op, Subject: subject, Code: code, Err: err}
}

// Is reports whether err is of the given kind.  It is shorthand for
// errors.Is(err, kind).
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
