// Package errors provides standardized domain errors with codes for the spell card manager.
//
// Usage:
//
//	// In the model layer - return typed errors
//	if !hex.valid() {
//	    return errors.InvalidFormatf("invalid color %q", s)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrCancelled) {
//	    return nil // user closed the dialog
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeInvalidFormat:
//	        prompter.Error(ctx, "Error", domainErr.Message, session.ButtonsOK)
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeValidation    Code = "VALIDATION"
	CodeInvalidFormat Code = "INVALID_FORMAT"
	CodeIO            Code = "IO"
	CodeCancelled     Code = "CANCELLED"
	CodeInternal      Code = "INTERNAL"
)

// ExitStatus returns the process exit status the CLI uses for an error code.
func (c Code) ExitStatus() int {
	switch c {
	case CodeCancelled:
		return 0
	case CodeNotFound:
		return 3
	case CodeValidation:
		return 4
	case CodeInvalidFormat:
		return 5
	case CodeIO:
		return 6
	default:
		return 1
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// ExitStatus returns the CLI exit status for this error.
func (e *Error) ExitStatus() int {
	return e.Code.ExitStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidFormat = &Error{Code: CodeInvalidFormat, Message: "invalid format"}
	ErrIO            = &Error{Code: CodeIO, Message: "i/o error"}
	ErrCancelled     = &Error{Code: CodeCancelled, Message: "cancelled"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}
)

// ExitStatus extracts the exit status for any error. Nil is success, errors
// without a code are generic failures.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.ExitStatus()
	}
	return 1
}

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// InvalidFormat creates a deserialization error.
func InvalidFormat(msg string) *Error {
	return &Error{Code: CodeInvalidFormat, Message: msg}
}

// InvalidFormatf creates a deserialization error with formatted message.
func InvalidFormatf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidFormat, Message: fmt.Sprintf(format, args...)}
}

// IO creates an i/o error.
func IO(msg string) *Error {
	return &Error{Code: CodeIO, Message: msg}
}

// Cancelled creates a cancellation error.
func Cancelled(msg string) *Error {
	return &Error{Code: CodeCancelled, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
