// Package errors provides the error taxonomy used across the healthmap
// system. Adapter failures are classified into kinds so that per-record
// and per-sub-fetch failures can be counted, isolated, and reported
// without losing the underlying cause.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As.
var As = errors.As

// Kind classifies a failure from an upstream source or sub-fetch.
type Kind string

// Failure kinds, attached per sub-fetch rather than as a single overall
// error when partial results exist.
const (
	KindConnection     Kind = "connection"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindValidation     Kind = "validation"
	KindParse          Kind = "parse"
	KindTimeout        Kind = "timeout"
	KindRateLimited    Kind = "rate_limited"
	KindUnknown        Kind = "unknown"
)

// String returns the string representation of a kind.
func (k Kind) String() string {
	return string(k)
}

// Common sentinel errors for the healthmap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that an upstream rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrUnauthenticated indicates missing or rejected credentials
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates the caller lacks permission for the resource
	ErrForbidden = errors.New("forbidden")

	// ErrSourceUnavailable indicates an upstream source is temporarily unavailable
	ErrSourceUnavailable = errors.New("source unavailable")
)

// KindOf classifies err into a Kind. Unrecognized errors map to
// KindUnknown; a nil error has no kind and returns "".
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrCanceled):
		return KindTimeout
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrUnauthenticated):
		return KindAuthentication
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrSourceUnavailable):
		return KindConnection
	default:
		var se *SourceError
		if errors.As(err, &se) {
			return se.Kind
		}
		var pe *ParseError
		if errors.As(err, &pe) {
			return KindParse
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			return KindValidation
		}
		return KindUnknown
	}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// SourceError represents a classified failure from one upstream source.
type SourceError struct {
	Source  string // source adapter id
	Kind    Kind
	Op      string // operation or sub-fetch name, e.g. "pull", "security"
	Message string
	Err     error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("source %s: %s during %s: %s", e.Source, e.Kind, e.Op, e.Message)
	}
	return fmt.Sprintf("source %s: %s: %s", e.Source, e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SourceError) Is(target error) bool {
	switch e.Kind {
	case KindRateLimited:
		return target == ErrRateLimited
	case KindTimeout:
		return target == ErrTimeout
	case KindConnection:
		return target == ErrSourceUnavailable
	case KindAuthentication:
		return target == ErrUnauthenticated
	case KindAuthorization:
		return target == ErrForbidden
	case KindNotFound:
		return target == ErrNotFound
	}
	return false
}

// NewSourceError creates a new SourceError
func NewSourceError(source string, kind Kind, op, message string) *SourceError {
	return &SourceError{Source: source, Kind: kind, Op: op, Message: message}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "yaml", "json", "url", etc.
	Input   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("%s parse error for %q: %s", e.Format, e.Input, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, input, message string, err error) *ParseError {
	return &ParseError{Format: format, Input: input, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s", e.Operation, e.Duration)
	}
	return fmt.Sprintf("operation %s timed out", e.Operation)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapSource wraps an error as a SourceError with the given kind
func WrapSource(source string, kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Source: source, Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, input string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, Input: input, Message: err.Error(), Err: err}
}
