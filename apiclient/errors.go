package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized matches every *AuthError.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable matches every *NetworkError.
	ErrUnavailable = errors.New("backend unavailable")
)

// NetworkError means no HTTP response was received: the connection failed,
// the request timed out, or the context was cancelled.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrUnavailable }

// Timeout reports whether the request failed because a deadline passed.
func (e *NetworkError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// AuthError is an HTTP 401 from the backend. By the time it is returned the
// stored token has already been removed.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Message
}

func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

// FieldError is one failed rule of a locally validated request.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (f FieldError) String() string {
	switch f.Tag {
	case "required":
		return f.Field + " is required"
	case "email":
		return f.Field + " must be a valid email"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f.Field, f.Param)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", f.Field, f.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f.Field, f.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f.Field, f.Param)
	case "datetime":
		return fmt.Sprintf("%s must be a date in the format %s", f.Field, f.Param)
	default:
		return fmt.Sprintf("%s failed validation (%s)", f.Field, f.Tag)
	}
}

// ValidationError is any other rejected request: a non-2xx, non-401 response
// (Status holds the HTTP status, Message the backend's message if it sent
// one) or a request that failed local validation before it was sent
// (Status is 0 and Fields lists the failed rules).
type ValidationError struct {
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Status == 0:
		return "invalid request: " + e.Message
	case e.Message == "":
		return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
	default:
		return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

func newFieldsError(fields []FieldError) *ValidationError {
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.String())
	}
	return &ValidationError{Message: strings.Join(msgs, "; "), Fields: fields}
}
