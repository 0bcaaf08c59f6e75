package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryProtocol Category = "protocol"
	CategoryClient   Category = "client"
	CategoryHost     Category = "host"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// BridgeError is a structured error with a stable code, a subject and a hint.
type BridgeError struct {
	// Code is a unique error identifier (e.g., "B102").
	Code string

	// Category is the error type (protocol, client, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Subject names the thing the error is about, such as an action key.
	Subject string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	msg := e.Message
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Subject)
	}
	if e.Wrapped != nil {
		msg = msg + ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BridgeError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same code.
func (e *BridgeError) Is(target error) bool {
	t, ok := target.(*BridgeError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSubject records what the error is about.
func (e *BridgeError) WithSubject(subject string) *BridgeError {
	e.Subject = subject
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BridgeError) WithSuggestion(s string) *BridgeError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *BridgeError) WithDetail(d string) *BridgeError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *BridgeError) Wrap(err error) *BridgeError {
	e.Wrapped = err
	return e
}

// New creates a BridgeError from a registered error code.
func New(code string) *BridgeError {
	template, ok := registry[code]
	if !ok {
		return &BridgeError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &BridgeError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new BridgeError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *BridgeError {
	return &BridgeError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a BridgeError.
func FromError(err error, code string) *BridgeError {
	if err == nil {
		return nil
	}
	if be, ok := err.(*BridgeError); ok {
		return be
	}
	return New(code).Wrap(err)
}
