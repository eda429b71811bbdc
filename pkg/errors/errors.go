// Package errors provides structured error types for the phi-engine.
//
// Every failure raised by the transform core, the analyzers and the adapters
// carries exactly one Code, so boundary layers (HTTP, CLI) can translate it
// without inspecting message text.
//
// # Error Codes
//
//   - DOMAIN_ERROR: a value outside the mathematical domain (x <= 0, efficiency > 1)
//   - INVALID_INPUT: a missing or malformed request field; Field names it
//   - UNSUPPORTED_MODE, UNKNOWN_ADAPTER, UNKNOWN_CANDIDATE: lookup failures
//   - NOT_DECOMPOSABLE: the bounded decomposition search found no exact match
//   - NOT_FOUND, INTERNAL: boundary-layer failures
//
// # Usage
//
//	err := errors.InvalidInput("steps[2].efficiency", "required")
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    field := errors.FieldOf(err) // "steps[2].efficiency"
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInternal, origErr, "open history store")
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Mathematical domain violations
	ErrCodeDomain Code = "DOMAIN_ERROR"

	// Request validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeUnsupportedMode Code = "UNSUPPORTED_MODE"

	// Lookup failures
	ErrCodeUnknownAdapter   Code = "UNKNOWN_ADAPTER"
	ErrCodeUnknownCandidate Code = "UNKNOWN_CANDIDATE"
	ErrCodeNotFound         Code = "NOT_FOUND"

	// Search exhaustion
	ErrCodeNotDecomposable Code = "NOT_DECOMPOSABLE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Field   string // Offending request field (INVALID_INPUT only)
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
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

// InvalidInput creates an INVALID_INPUT error naming the offending field.
func InvalidInput(field, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// Domain creates a DOMAIN_ERROR.
func Domain(format string, args ...any) *Error {
	return New(ErrCodeDomain, format, args...)
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

// FieldOf returns the request field attached to err, or "".
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Field != "" {
			return e.Field + ": " + e.Message
		}
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code a transport should report.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeDomain, ErrCodeInvalidInput, ErrCodeUnsupportedMode:
		return http.StatusBadRequest
	case ErrCodeNotDecomposable:
		return http.StatusUnprocessableEntity
	case ErrCodeUnknownAdapter, ErrCodeUnknownCandidate, ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
