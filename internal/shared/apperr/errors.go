// Package apperr defines the typed errors returned by the seat inventory core.
// Each error carries a Kind which the HTTP boundary maps to a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalid       Kind = "invalid"
	KindNotFound      Kind = "not_found"
	KindForbidden     Kind = "forbidden"
	KindConflict      Kind = "conflict"
	KindInconsistency Kind = "internal_inconsistency"
	KindInternal      Kind = "internal"
)

// Error is a classified failure. Offenders lists the seat identities that
// caused a conflict, when applicable.
type Error struct {
	Kind      Kind
	Message   string
	Offenders []string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrConflict).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalid       = &Error{Kind: KindInvalid}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrInconsistency = &Error{Kind: KindInconsistency}
)

func Invalid(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflict(message string, offenders ...string) *Error {
	return &Error{Kind: KindConflict, Message: message, Offenders: offenders}
}

func Inconsistency(message string, err error, offenders ...string) *Error {
	return &Error{Kind: KindInconsistency, Message: message, Err: err, Offenders: offenders}
}

// WithOffenders attaches offending seat identities to e
func (e *Error) WithOffenders(offenders ...string) *Error {
	e.Offenders = append(e.Offenders, offenders...)
	return e
}

// Internal wraps an unexpected infrastructure failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// OffendersOf returns the offending seat identities attached to err, if any.
func OffendersOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Offenders
	}
	return nil
}

// HTTPStatus maps an error to the status code surfaced by the HTTP layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
