package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrPermission   = errors.New("permission denied")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrInternal     = errors.New("internal server error")
)

type APIError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

// Validation wraps ErrValidation with a formatted detail.
func Validation(format string, args ...interface{}) error {
	return wrap(ErrValidation, format, args...)
}

func Permission(format string, args ...interface{}) error {
	return wrap(ErrPermission, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return wrap(ErrNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) error {
	return wrap(ErrInvalidState, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return wrap(ErrConflict, format, args...)
}

func wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func HTTPStatusFromError(err error) int {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus maps a response status back onto the sentinel it came from.
func FromHTTPStatus(status int, message string) error {
	var kind error
	switch status {
	case http.StatusBadRequest:
		kind = ErrValidation
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	case http.StatusForbidden:
		kind = ErrPermission
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusConflict:
		kind = ErrInvalidState
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	default:
		kind = ErrInternal
	}
	if message == "" {
		return kind
	}
	return &statusError{kind: kind, message: message, status: status}
}

type statusError struct {
	kind    error
	message string
	status  int
}

func (e *statusError) Error() string {
	return e.message
}

func (e *statusError) Unwrap() error {
	return e.kind
}

// Status returns the HTTP status carried by an error produced by FromHTTPStatus, or 0.
func Status(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}
