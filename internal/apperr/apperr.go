// Package apperr defines the error kinds surfaced by query building,
// query execution, response decoding and collection operations.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier indicates a predicate or type name that cannot be
	// safely placed into a query.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidLiteral indicates a string value that cannot be quoted.
	ErrInvalidLiteral = errors.New("invalid literal")

	// ErrMissingKey indicates the response payload lacks the expected key.
	ErrMissingKey = errors.New("missing result key")
)

// ValidationError is raised before any query is built or sent.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for a field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// QueryExecutionError wraps a failure reported by the query executor,
// either a transport error or errors returned in the response envelope.
type QueryExecutionError struct {
	Op  string
	Err error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// DecodeError indicates a response payload that does not match the
// expected shape.
type DecodeError struct {
	Key    string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode response"
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusError is a collection operation whose envelope status is not "success".
type StatusError struct {
	Op         string
	Collection string
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (collection %q, status %q)", e.Message, e.Collection, e.Status)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsQueryExecution reports whether err carries a QueryExecutionError.
func IsQueryExecution(err error) bool {
	var qe *QueryExecutionError
	return errors.As(err, &qe)
}

// IsDecode reports whether err carries a DecodeError.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsStatus reports whether err carries a StatusError.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
