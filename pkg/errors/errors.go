// Package errors provides structured error types for slimdeps.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the resolver, downloader and injector
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages in the CLI
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_* / MALFORMED_*: Input validation failures (never retried)
//   - UNRESOLVED_* / NOT_FOUND: Resource not found in any repository
//   - DOWNLOAD_* / NETWORK_*: Transport failures
//   - INTEGRITY / SIGNATURE_*: Content verification failures
//   - RELOCATION_* / INJECTION_*: Pipeline stage failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Typed Errors
//
// Each stage of the resolve, download, verify and inject pipeline reports a
// dedicated type carrying the failing coordinate:
//
//   - [MalformedCoordinateError]: a coordinate cannot be turned into a path
//   - [UnresolvedDependencyError]: every repository was tried without success
//   - [DownloadFailedError]: the chosen repository failed mid-transfer
//   - [IntegrityError]: checksum or signature mismatch
//   - [RelocationError]: namespace rewriting failed
//   - [InjectionFailedError]: wraps any of the above and aborts an injection pass
//
// All typed errors implement Code, so [Is] and [GetCode] work uniformly:
//
//	if errors.Is(err, errors.ErrCodeIntegrity) {
//	    // Handle checksum mismatch
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeInvalidManifest     Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath         Code = "INVALID_PATH"
	ErrCodeMalformedCoordinate Code = "MALFORMED_COORDINATE"

	// Resource not found errors
	ErrCodeNotFound             Code = "NOT_FOUND"
	ErrCodeFileNotFound         Code = "FILE_NOT_FOUND"
	ErrCodeUnresolvedDependency Code = "UNRESOLVED_DEPENDENCY"

	// Network errors
	ErrCodeNetwork        Code = "NETWORK_ERROR"
	ErrCodeTimeout        Code = "TIMEOUT"
	ErrCodeDownloadFailed Code = "DOWNLOAD_FAILED"

	// Verification errors
	ErrCodeIntegrity        Code = "INTEGRITY"
	ErrCodeSignatureInvalid Code = "SIGNATURE_INVALID"

	// Pipeline errors
	ErrCodeRelocationFailed Code = "RELOCATION_FAILED"
	ErrCodeInjectionFailed  Code = "INJECTION_FAILED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// coder is implemented by every error type in this package.
type coder interface {
	Code() Code
}

// Error is a structured error with a code and optional cause.
type Error struct {
	code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.Message)
}

// Code returns the machine-readable error code.
func (e *Error) Code() Code { return e.code }

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It walks the error chain and matches the first coded error found,
// so an [InjectionFailedError] matches ErrCodeInjectionFailed but not the
// code of its cause. Use [HasCode] to search the whole chain.
func Is(err error, code Code) bool {
	var c coder
	if errors.As(err, &c) {
		return c.Code() == code
	}
	return false
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		if c, ok := err.(coder); ok && c.Code() == code {
			return true
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				if HasCode(e, code) {
					return true
				}
			}
			return false
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no coded error is in the chain.
func GetCode(err error) Code {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
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

// MalformedCoordinateError reports a coordinate that cannot be mapped to a
// repository path. It is a caller bug and is never retried.
type MalformedCoordinateError struct {
	Coordinate string
	Reason     string
}

func (e *MalformedCoordinateError) Error() string {
	return fmt.Sprintf("malformed coordinate %q: %s", e.Coordinate, e.Reason)
}

// Code returns ErrCodeMalformedCoordinate.
func (e *MalformedCoordinateError) Code() Code { return ErrCodeMalformedCoordinate }

// Attempt records one repository probe made during resolution.
type Attempt struct {
	Repository string // Repository base URL
	URL        string // Candidate artifact URL that was probed
	Err        error  // Why the probe failed
}

// UnresolvedDependencyError reports that no configured repository serves
// the dependency.
type UnresolvedDependencyError struct {
	Dependency string
	Attempts   []Attempt
}

func (e *UnresolvedDependencyError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("unresolved dependency %s: no repositories configured", e.Dependency)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "unresolved dependency %s: tried %d repositories", e.Dependency, len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s (%v)", a.Repository, a.Err)
	}
	return b.String()
}

// Code returns ErrCodeUnresolvedDependency.
func (e *UnresolvedDependencyError) Code() Code { return ErrCodeUnresolvedDependency }

// Repositories returns the base URLs of every repository that was tried, in order.
func (e *UnresolvedDependencyError) Repositories() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Repository
	}
	return out
}

// DownloadFailedError reports a transport, status or length failure after a
// repository has already been chosen.
type DownloadFailedError struct {
	Dependency string
	Location   string
	Cause      error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download %s from %s: %v", e.Dependency, e.Location, e.Cause)
}

// Code returns ErrCodeDownloadFailed.
func (e *DownloadFailedError) Code() Code { return ErrCodeDownloadFailed }

// Unwrap returns the transport cause.
func (e *DownloadFailedError) Unwrap() error { return e.Cause }

// IntegrityError reports that downloaded bytes do not match the expected
// checksum or signature. The partially written artifact has been discarded.
type IntegrityError struct {
	Dependency string
	Algorithm  string
	Expected   string
	Actual     string
	Cause      error
}

func (e *IntegrityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("integrity check failed for %s (%s): %v", e.Dependency, e.Algorithm, e.Cause)
	}
	return fmt.Sprintf("integrity check failed for %s (%s): expected %s, got %s",
		e.Dependency, e.Algorithm, e.Expected, e.Actual)
}

// Code returns ErrCodeIntegrity, or ErrCodeSignatureInvalid for signature failures.
func (e *IntegrityError) Code() Code {
	if e.Algorithm == "pgp" {
		return ErrCodeSignatureInvalid
	}
	return ErrCodeIntegrity
}

// Unwrap returns the verification cause, if any.
func (e *IntegrityError) Unwrap() error { return e.Cause }

// RelocationError reports a failed namespace rewrite.
type RelocationError struct {
	Dependency string
	Input      string
	Output     string
	Cause      error
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("relocate %s (%s -> %s): %v", e.Dependency, e.Input, e.Output, e.Cause)
}

// Code returns ErrCodeRelocationFailed.
func (e *RelocationError) Code() Code { return ErrCodeRelocationFailed }

// Unwrap returns the relocator cause.
func (e *RelocationError) Unwrap() error { return e.Cause }

// InjectionFailedError identifies the dependency whose processing aborted an
// injection pass. Cause is the stage error.
type InjectionFailedError struct {
	Dependency string
	Cause      error
}

func (e *InjectionFailedError) Error() string {
	return fmt.Sprintf("inject %s: %v", e.Dependency, e.Cause)
}

// Code returns ErrCodeInjectionFailed.
func (e *InjectionFailedError) Code() Code { return ErrCodeInjectionFailed }

// Unwrap returns the stage error.
func (e *InjectionFailedError) Unwrap() error { return e.Cause }
