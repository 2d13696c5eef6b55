// Package errors provides structured error types for resolvekit.
//
// Every failure a resolution can surface to its caller carries a
// machine-readable [Code]. The codes mirror the Node.js error names where one
// exists (ERR_MODULE_NOT_FOUND, ERR_INVALID_MODULE_SPECIFIER, ...) so a host
// can map them back onto runtime errors.
//
// # Error Codes
//
// Codes fall into three families:
//   - NOT_FOUND, MODULE_NOT_FOUND, PACKAGE_PATH_NOT_EXPORTED,
//     PACKAGE_IMPORT_NOT_DEFINED: no candidate satisfied the request
//   - INVALID_*, UNSUPPORTED_DIRECTORY_IMPORT, LINK_LOOP: malformed input or
//     package configuration; terminal
//   - PARSE_ERROR, INTERNAL_ERROR: unexpected data or failures
//
// Filesystem absence is never an error; it is a negative probe result.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSpecifier, "%q contains an encoded separator", spec)
//	if errors.Is(err, errors.ErrCodeInvalidSpecifier) {
//	    // Handle malformed specifier
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeParse, origErr, "read %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput         Code = "INVALID_INPUT"
	ErrCodeInvalidSpecifier     Code = "INVALID_SPECIFIER"
	ErrCodeInvalidPackageTarget Code = "INVALID_PACKAGE_TARGET"
	ErrCodeInvalidPackageConfig Code = "INVALID_PACKAGE_CONFIG"
	ErrCodeUnsupportedDirImport Code = "UNSUPPORTED_DIRECTORY_IMPORT"
	ErrCodeLinkLoop             Code = "LINK_LOOP"

	// Resolution misses
	ErrCodeNotFound                Code = "NOT_FOUND"
	ErrCodeModuleNotFound          Code = "MODULE_NOT_FOUND"
	ErrCodePackagePathNotExported  Code = "PACKAGE_PATH_NOT_EXPORTED"
	ErrCodePackageImportNotDefined Code = "PACKAGE_IMPORT_NOT_DEFINED"

	// Data errors
	ErrCodeParse Code = "PARSE_ERROR"

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

// IsNotFound reports whether err is any of the "no candidate matched" codes.
// Array fallbacks in exports maps and the CJS front-end use it to decide
// whether to continue with the next alternative.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeModuleNotFound, ErrCodePackagePathNotExported, ErrCodePackageImportNotDefined:
		return true
	}
	return false
}

// IsInvalid reports whether err is a malformed-input or malformed-config code.
func IsInvalid(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidSpecifier, ErrCodeInvalidPackageTarget,
		ErrCodeInvalidPackageConfig, ErrCodeUnsupportedDirImport, ErrCodeLinkLoop:
		return true
	}
	return false
}
