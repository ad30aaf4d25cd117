package errors

import (
	"errors"
	"fmt"
)

// BridgeError is the structured error type for qmd-bridge.
type BridgeError struct {
	// Code is the taxonomy code (e.g. CodeTooManyRequests).
	Code Code

	// Reason is an optional machine-readable sub-reason. Currently used
	// for CodeInvalidPath (not-absolute, dangerous, missing,
	// not-a-directory).
	Reason string

	// Cause is the underlying error. Logged, never shown to callers.
	Cause error
}

// Error implements the error interface. The rendered string contains only
// taxonomy data, never the cause.
func (e *BridgeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, UserMessage(e.Code), e.Reason)
	}
	return fmt.Sprintf("[%s] %s", e.Code, UserMessage(e.Code))
}

// UserMessage returns the fixed user-safe message for this error.
func (e *BridgeError) UserMessage() string {
	return UserMessage(e.Code)
}

// Unwrap returns the underlying cause for error chain support.
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// Is matches BridgeErrors by code so errors.Is works with sentinel values
// produced by New.
func (e *BridgeError) Is(target error) bool {
	if t, ok := target.(*BridgeError); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a BridgeError with the given code.
func New(code Code) *BridgeError {
	return &BridgeError{Code: code}
}

// Wrap creates a BridgeError with the given code and underlying cause.
// Returns nil if err is nil.
func Wrap(code Code, err error) *BridgeError {
	if err == nil {
		return nil
	}
	return &BridgeError{Code: code, Cause: err}
}

// InvalidPath creates an InvalidPath error carrying its sub-reason.
func InvalidPath(reason PathReason) *BridgeError {
	return &BridgeError{Code: CodeInvalidPath, Reason: string(reason)}
}

// CodeOf extracts the taxonomy code from err, walking the error chain.
// Returns CodeInternal for errors that are not BridgeErrors.
func CodeOf(err error) Code {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given taxonomy code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
