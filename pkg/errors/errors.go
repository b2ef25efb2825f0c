package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound      = "NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeForbidden     = "FORBIDDEN"
	CodeConflict      = "CONFLICT"
	CodePolicy        = "POLICY_VIOLATION"
	CodeLockTimeout   = "LOCK_TIMEOUT"
	CodeCircuitOpen   = "CIRCUIT_OPEN"
	CodeUpstream      = "UPSTREAM_ERROR"
	CodePaymentFailed = "PAYMENT_FAILED"
	CodeInternal      = "INTERNAL_ERROR"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// Policy marks requests rejected by a business rule (cancellation window,
// already-terminal status). Distinct from Conflict: retrying with the same
// parameters will never succeed.
func Policy(message string) *AppError {
	return &AppError{
		Code:       CodePolicy,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// LockTimeout marks a transient failure to acquire a mutual-exclusion lock.
// Safe to retry the whole operation after backoff.
func LockTimeout(key string) *AppError {
	return &AppError{
		Code:       CodeLockTimeout,
		Message:    "timed out waiting for lock",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"key": key},
	}
}

// CircuitOpen marks a call short-circuited because the dependency's breaker
// is open. The wrapped call was not made.
func CircuitOpen(dependency string) *AppError {
	return &AppError{
		Code:       CodeCircuitOpen,
		Message:    fmt.Sprintf("%s is temporarily unavailable", dependency),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func Upstream(dependency string, err error) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    fmt.Sprintf("%s call failed", dependency),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func PaymentFailed(message string, err error) *AppError {
	return &AppError{
		Code:       CodePaymentFailed,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
