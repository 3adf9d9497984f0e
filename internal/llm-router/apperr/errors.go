// Package apperr holds the error kinds the generation pipeline reports and
// their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindMissingProject       Kind = "MISSING_PROJECT"
	KindInvalidInput         Kind = "INVALID_INPUT"
	KindInvalidFormData      Kind = "INVALID_FORM_DATA"
	KindInvalidProjectConfig Kind = "INVALID_PROJECT_CONFIG"
	KindUnsupportedProvider  Kind = "UNSUPPORTED_PROVIDER"
	KindUpstreamAuth         Kind = "UPSTREAM_AUTH"
	KindUpstreamRateLimit    Kind = "UPSTREAM_RATE_LIMIT"
	KindUpstreamGeneric      Kind = "UPSTREAM_ERROR"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// Error is the single error type surfaced across package boundaries.
// StatusCode is the upstream HTTP status when one was observed, 0 otherwise.
type Error struct {
	Kind       Kind
	Message    string
	Details    []string
	StatusCode int
	Err        error
}

func New(kind Kind, message string, details ...string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

func Wrap(kind Kind, err error, message string, details ...string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Details: details,
		Err:     err,
	}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.New(kind, ""))
// works as a kind check.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus is the status the API boundary answers with for this error.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingProject, KindInvalidInput, KindInvalidFormData, KindInvalidProjectConfig:
		return http.StatusBadRequest
	case KindUpstreamAuth:
		return http.StatusUnauthorized
	case KindUpstreamRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the caller's input caused the error.
func (e *Error) IsClientError() bool {
	switch e.Kind {
	case KindMissingProject, KindInvalidInput, KindInvalidFormData:
		return true
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// From returns err as an *Error, wrapping unknown errors as KindInternal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindInternal, err, "Internal server error")
}
