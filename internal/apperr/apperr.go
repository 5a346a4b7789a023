// Package apperr is the error taxonomy shared by the service and HTTP layers.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	Unauthorized
	Forbidden
	Conflict
	InvalidState
	Invalid
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case InvalidState:
		return "invalid_state"
	case Invalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Error carries a Kind and a message that is safe to show to the client.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Detail == "" {
		return e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap turns an unexpected failure into an Internal error. The cause's message
// becomes the detail, matching what clients saw from the previous backend.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: Internal, Detail: err.Error(), Err: err}
}

// KindOf reports the Kind of err. Errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a Kind to its HTTP status code. Forbidden answers 405, which
// existing clients depend on for "not your tweet".
func Status(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusMethodNotAllowed
	case Conflict, InvalidState:
		return http.StatusBadRequest
	case Invalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
