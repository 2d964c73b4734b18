package errors

import (
	stderrors "errors"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// Helper for common errors
var (
	ErrUnauthorized = func(msg string) *HTTPError { return NewHTTPError(http.StatusUnauthorized, msg) }
	ErrBadRequest   = func(msg string) *HTTPError { return NewHTTPError(http.StatusBadRequest, msg) }
)

// ToHTTP classifies err for a response. Unknown errors become a generic 500 so
// internal details never reach the client.
func ToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr
	}
	var rejection *PolicyRejection
	if stderrors.As(err, &rejection) {
		return NewHTTPError(http.StatusBadRequest, rejection.Message)
	}
	if stderrors.Is(err, ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "Meeting not found")
	}
	if stderrors.Is(err, ErrNotScheduled) {
		return NewHTTPError(http.StatusConflict, "Only scheduled meetings can be cancelled or completed")
	}
	return NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
