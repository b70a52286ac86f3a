package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindVerification  Kind = "verification_failed"
	KindInternal      Kind = "internal"
)

// Error is a classified application error carrying its HTTP status.
type Error struct {
	Code int
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func newError(code int, kind Kind, msg string) error {
	return &Error{Code: code, Kind: kind, Err: errors.New(msg)}
}

func Validation(msg string) error    { return newError(http.StatusBadRequest, KindValidation, msg) }
func Forbidden(msg string) error     { return newError(http.StatusForbidden, KindAuthorization, msg) }
func NotFound(msg string) error      { return newError(http.StatusNotFound, KindNotFound, msg) }
func Conflict(msg string) error      { return newError(http.StatusConflict, KindConflict, msg) }
func Unprocessable(msg string) error { return newError(http.StatusUnprocessableEntity, KindVerification, msg) }

// Status returns the HTTP status for err, 500 when it is not classified.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

// KindOf returns the classification of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
