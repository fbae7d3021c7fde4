// Package apperror classifies failures that leave the service layer so the
// transport can map them to a status code without inspecting causes.
package apperror

import (
	"errors"
	"net/http"
)

// Kind is the failure class of an AppError.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	// KindUnavailable is a feature whose backend is not configured.
	KindUnavailable
)

// GenericMessage replaces internal error text in production responses.
const GenericMessage = "Algo salió mal"

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError carries a client-safe message. Cause is for logs only.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
	Details []FieldError
}

func (e *AppError) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Status maps the kind to an HTTP status code.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Label is the short error name sent as the "error" field.
func (e *AppError) Label() string {
	switch e.Kind {
	case KindValidation:
		return "Validation Error"
	case KindBadRequest:
		return "Bad Request"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "Not Found"
	case KindConflict:
		return "Conflict"
	case KindUnavailable:
		return "Service Unavailable"
	default:
		return "Server Error"
	}
}

func Validation(msg string, details ...FieldError) *AppError {
	return &AppError{Kind: KindValidation, Message: msg, Details: details}
}

func BadRequest(msg string) *AppError {
	return &AppError{Kind: KindBadRequest, Message: msg}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *AppError {
	return &AppError{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

func Unavailable(msg string) *AppError {
	return &AppError{Kind: KindUnavailable, Message: msg}
}

// Internal wraps an unexpected failure. msg is the operation-level message
// ("Error al registrar usuario"); the cause stays server-side.
func Internal(msg string, cause error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Cause: cause}
}

// As extracts the *AppError from err's chain. Unclassified errors come back as Internal.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("", err)
}

// Is reports whether err is an AppError of kind k.
func Is(err error, k Kind) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Kind == k
}
