// Package errors provides structured error types for causalhub.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Structural errors describe a rejected graph mutation or configuration:
//   - CYCLE: an edge insertion or reversal would close a directed cycle
//   - CONSTRAINT_CONFLICT: prior knowledge is inconsistent with itself or the start graph
//
// Numerical errors describe data that cannot support a computation:
//   - DEGENERATE_INPUT: zero variance, empty strata, non-positive degrees of freedom
//   - SINGULAR_MATRIX: a covariance block could not be factorized even after ridge
//     regularization
//
// INVALID_*, *_NOT_FOUND and INTERNAL_ERROR codes follow the usual meaning.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unknown variable: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCycle, dag.ErrCycle, "add %s -> %s", x, y)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Structural errors
	ErrCodeCycle              Code = "CYCLE"
	ErrCodeConstraintConflict Code = "CONSTRAINT_CONFLICT"

	// Numerical errors
	ErrCodeDegenerateInput Code = "DEGENERATE_INPUT"
	ErrCodeSingularMatrix  Code = "SINGULAR_MATRIX"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeUnknownVertex Code = "UNKNOWN_VERTEX"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Backend errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// SingularMatrixError reports a covariance block that could not be
// factorized directly. Ridge is the diagonal load that was finally applied;
// Recovered is false when every attempt failed.
type SingularMatrixError struct {
	Rows      int
	Ridge     float64
	Recovered bool
}

// Error implements the error interface.
func (e *SingularMatrixError) Error() string {
	if e.Recovered {
		return fmt.Sprintf("singular %dx%d matrix: recovered with ridge %g", e.Rows, e.Rows, e.Ridge)
	}
	return fmt.Sprintf("singular %dx%d matrix: ridge up to %g did not help", e.Rows, e.Rows, e.Ridge)
}

// Code returns the error code for this error type.
func (e *SingularMatrixError) Code() Code {
	return ErrCodeSingularMatrix
}
