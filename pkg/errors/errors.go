package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

// AppError represents a standardized application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"` // Internal error for logging
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError of the same kind, so sentinel comparisons work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New creates a new AppError
func New(kind Kind, code int, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a 400 error for missing or malformed input.
func Validation(message string) *AppError {
	return New(KindValidation, http.StatusBadRequest, message, nil)
}

// BadRequest is an alias of Validation.
func BadRequest(message string) *AppError {
	return Validation(message)
}

// Authentication creates a 401 error.
func Authentication(message string) *AppError {
	return New(KindAuthentication, http.StatusUnauthorized, message, nil)
}

// Unauthorized is an alias of Authentication.
func Unauthorized(message string) *AppError {
	return Authentication(message)
}

// Forbidden creates a 403 error for an authenticated caller without permission.
func Forbidden(message string) *AppError {
	return New(KindAuthorization, http.StatusForbidden, message, nil)
}

// NotFound creates a 404 error
func NotFound(message string) *AppError {
	return New(KindNotFound, http.StatusNotFound, message, nil)
}

// Conflict creates a 409 error for an illegal state transition.
func Conflict(message string) *AppError {
	return New(KindConflict, http.StatusConflict, message, nil)
}

// Internal creates a 500 error
func Internal(err error) *AppError {
	return New(KindInternal, http.StatusInternalServerError, "Internal Server Error", err)
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err; errors that are not AppErrors are internal.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message that is safe to show to a client.
func PublicMessage(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return "Internal Server Error"
}
