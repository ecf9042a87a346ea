// Package apperr holds the typed errors services return. httpkit.HandleError
// turns their Kind into a status code; any other error is treated as an
// infrastructure failure.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is a well-formed request the reporting rules reject.
	KindValidation
	// KindInternal is a wiring or configuration fault on our side.
	KindInternal
	// KindUnavailable means source data could not be fetched after retries.
	// Reports fail loudly instead of rendering partial aggregates.
	KindUnavailable
	// KindConflict is a request that clashes with work already in progress.
	KindConflict
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the Kind to the response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Internal(message string) *Error {
	return New(KindInternal, message)
}

// Unavailable wraps a data-fetch failure that exhausted its retries.
func Unavailable(err error) *Error {
	return Wrap(KindUnavailable, "data unavailable", err)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// GetKind returns the Kind of the first *Error in err's chain, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
