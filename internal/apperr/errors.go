// Package apperr defines the error taxonomy shared by the gate, the services
// and the HTTP handlers. Each failure carries a sentinel kind that handlers
// translate into a status code, plus a message that is safe to show clients.
// The underlying cause, when there is one, is kept for server-side logging.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Compare with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrSelfDelete        = errors.New("cannot delete yourself")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredToken      = errors.New("token expired")
	ErrForbidden         = errors.New("forbidden")
	ErrAccountSuspended  = errors.New("account is suspended")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage failure")
)

// Error pairs a sentinel kind with a client-facing message and an optional
// internal cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Is reports whether target is the kind of e, so errors.Is(err, ErrNotFound)
// works through the wrapper.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Validation reports bad input shape or an enum value outside its allow-list.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity, e.g. NotFound("User").
func NotFound(entity string) *Error {
	return &Error{Kind: ErrNotFound, Msg: entity + " not found"}
}

// Storage wraps an unexpected backend error. The client only ever sees the
// generic message.
func Storage(op string, err error) *Error {
	return &Error{Kind: ErrStorage, Msg: op, Err: err}
}

// AuditWriteError is returned when the ledger append fails. The triggering
// state change has been rolled back (or never happened), but the caller must
// report failure because the audit trail could not be completed.
type AuditWriteError struct {
	Action string
	Err    error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("audit write failed for %s: %v", e.Action, e.Err)
}

func (e *AuditWriteError) Unwrap() error { return e.Err }

// Message returns the client-safe message for err.
func Message(err error) string {
	var ae *AuditWriteError
	if errors.As(err, &ae) {
		return "Audit trail unavailable; operation was not applied"
	}
	var e *Error
	if errors.As(err, &e) {
		if errors.Is(e.Kind, ErrStorage) {
			return "Internal Server Error"
		}
		return e.Msg
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Authorization header required"
	case errors.Is(err, ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, ErrInvalidCredential):
		return "Invalid or expired token"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrNotFound):
		return "Not Found"
	}
	return "Internal Server Error"
}

// HTTPStatus maps err to the response status code.
func HTTPStatus(err error) int {
	var ae *AuditWriteError
	if errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSelfDelete):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrAccountSuspended):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
