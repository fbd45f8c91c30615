package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels returned by services. Handlers translate them to HTTP statuses.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream error")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Validation wraps a message as a 400.
func Validation(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, "validation_error", fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...)))
}

// From classifies any error into an *Error. Unknown errors become 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ErrValidation):
		return New(http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotFound):
		// not-found and not-yours look the same to the caller
		return New(http.StatusForbidden, "forbidden", ErrForbidden)
	case errors.Is(err, ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	case errors.Is(err, ErrUpstream):
		return New(http.StatusInternalServerError, "upstream_error", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
