package http

import (
	"fmt"
	"net/http"
)

// ParamRetryAfter, when set on an error, is also sent as the Retry-After
// header (whole seconds).
const ParamRetryAfter = "retry_after_seconds"

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithRetryAfter tells the client how long to back off.
func (e *AppError) WithRetryAfter(seconds int) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[ParamRetryAfter] = seconds
	return e
}

// WithError wraps an underlying error. It is logged, never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return newAppError("ERR_BAD_REQUEST", message, http.StatusBadRequest)
}

func ForbiddenError(message string) *AppError {
	return newAppError("ERR_FORBIDDEN", message, http.StatusForbidden)
}

func ConflictError(message string) *AppError {
	return newAppError("ERR_CONFLICT", message, http.StatusConflict)
}

func TooManyRequestsError(message string) *AppError {
	return newAppError("ERR_TOO_MANY_REQUESTS", message, http.StatusTooManyRequests)
}

// BadGatewayError reports a failure of the remote scanner service.
func BadGatewayError(message string) *AppError {
	return newAppError("ERR_BAD_GATEWAY", message, http.StatusBadGateway)
}

func InternalError(message string) *AppError {
	return newAppError("ERR_INTERNAL", message, http.StatusInternalServerError)
}
