// Package apperr classifies application errors so that the HTTP layer can
// pick a status code and a safe message without knowing every domain error.
//
//	err := apperr.Conflict("checkout.reserve", "Insufficient stock for Clay Vase", ErrInsufficientStock)
//	errors.Is(err, ErrInsufficientStock) // true
//	apperr.Status(err)                   // 409
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by how the caller should react to them.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to show to API clients;
// Err carries the underlying cause for logs and errors.Is.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error.
func E(op string, kind Kind, message string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: err}
}

func Validation(op, message string, err error) *Error {
	return E(op, KindValidation, message, err)
}

func Unauthorized(op, message string, err error) *Error {
	return E(op, KindUnauthorized, message, err)
}

func Forbidden(op, message string, err error) *Error {
	return E(op, KindForbidden, message, err)
}

func NotFound(op, message string, err error) *Error {
	return E(op, KindNotFound, message, err)
}

func Conflict(op, message string, err error) *Error {
	return E(op, KindConflict, message, err)
}

func Internal(op string, err error) *Error {
	return E(op, KindInternal, "", err)
}

// KindOf returns the kind of the outermost classified error in the chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-safe message for err. Internal errors never
// leak their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Message != "" {
		return e.Message
	}
	if KindOf(err) == KindInternal {
		return "Something went wrong, please try again later"
	}
	return http.StatusText(Status(err))
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
