// Package apperr is the gateway's error taxonomy: a small set of typed
// errors the HTTP layer maps to status codes, following the same
// typed-result-plus-fmt.Errorf-wrapping style the catalog loader and
// compiler already use.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-sql-driver/mysql"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindNotAcceptable
)

// Error is a classified application error with an HTTP-facing message
// distinct from the wrapped internal error (which may carry details the
// client should never see).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string, err error) *Error   { return newErr(KindValidation, message, err) }
func Unauthorized(message string, err error) *Error { return newErr(KindUnauthorized, message, err) }
func Forbidden(message string, err error) *Error    { return newErr(KindForbidden, message, err) }
func NotFound(message string, err error) *Error     { return newErr(KindNotFound, message, err) }
func NotAcceptable(message string, err error) *Error { return newErr(KindNotAcceptable, message, err) }
func Internal(message string, err error) *Error     { return newErr(KindInternal, message, err) }

// FromDriverError classifies a database/sql error returned from executing
// a compiled statement: a *mysql.MySQLError surfaces its error code to the
// client as a 400 (the driver already validated the statement against live
// schema, so a driver-rejected statement is a client-input problem, not a
// server fault); any other error is a generic 500, since its text may leak
// internal detail.
func FromDriverError(err error) *Error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return newErr(KindValidation, fmt.Sprintf("database error %d: %s", mysqlErr.Number, mysqlErr.Message), err)
	}
	return newErr(KindInternal, "internal server error", err)
}

// StatusCode maps a Kind to the HTTP status the handler layer should send.
func StatusCode(kind Kind) int {
	switch kind {
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
	case KindNotAcceptable:
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

// As is a thin re-export of errors.As so callers needn't import both
// packages just to unwrap an *Error.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}
