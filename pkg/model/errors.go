// Package model implements the document-level object model: the
// parser's output materialized into a Document/Page pair plus xref
// resolution, metadata, permissions and the standard security
// handler's authentication entry point. It mirrors pdfcpu's
// pkg/pdfcpu package (xreftable.go, types.go) but scoped to reading.
package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is the stable error taxonomy from spec.md §6/§7, shared all the
// way to the C-ABI layer.
type Code int

// Error codes, numerically stable across versions.
const (
	OK            Code = 0
	Generic       Code = -1
	Argument      Code = -2
	System        Code = -3
	Format        Code = -4
	EOF           Code = -5
	Limit         Code = -6
	Unsupported   Code = -7
	AuthRequired  Code = -8
)

// Error is a tagged error value: a Code, a message and an optional
// wrapped cause. Format/System errors are constructed with
// github.com/pkg/errors so a stack trace survives to diagnostics,
// the way pdfcpu wraps parse and I/O failures.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with the given code and message, attaching a
// stack trace via github.com/pkg/errors so Format/System failures keep
// their origin for later diagnostics.
func New(code Code, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Code: code, Message: msg, Cause: errors.New(msg)}
}

// Wrap attaches code and a message to an existing error, preserving it
// as Cause.
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Code: code, Message: msg, Cause: errors.Wrap(cause, msg)}
}

// CodeOf extracts the stable Code from any error, defaulting to
// Generic for errors that didn't originate in this package. This is
// the function the C-ABI layer calls to pick its return code.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return Generic
}
