package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"

	CodeRateLimited          = "RATE_LIMITED"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"

	CodeSlotUnavailable  = "SLOT_UNAVAILABLE"
	CodeSlotTaken        = "SLOT_TAKEN"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInvalidSlotKey   = "INVALID_SLOT_KEY"
	CodeMissingSession   = "MISSING_SESSION"
)

const (
	MessageSlotUnavailable = "This time slot was just taken. Please pick another one."
	MessageSlotTaken       = "This time slot is no longer available. Please choose a different time."
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

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
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

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
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

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"retryable": true},
	}
}

func RateLimited() *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func UnsupportedMediaType() *AppError {
	return &AppError{
		Code:       CodeUnsupportedMediaType,
		Message:    "Content-Type must be application/json",
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
}

func PayloadTooLarge(limit int64) *AppError {
	return &AppError{
		Code:       CodePayloadTooLarge,
		Message:    fmt.Sprintf("Request body exceeds %d bytes", limit),
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

func SlotUnavailable() *AppError {
	return &AppError{
		Code:       CodeSlotUnavailable,
		Message:    MessageSlotUnavailable,
		HTTPStatus: http.StatusConflict,
	}
}

func SlotTaken() *AppError {
	return &AppError{
		Code:       CodeSlotTaken,
		Message:    MessageSlotTaken,
		HTTPStatus: http.StatusConflict,
	}
}

// StoreUnavailable marks a transient persistence failure. Callers may retry.
func StoreUnavailable(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeStoreUnavailable,
		Message:    fmt.Sprintf("Slot store is temporarily unavailable (%s)", operation),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"retryable": true},
		Err:        err,
	}
}

func InvalidSlotKey(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidSlotKey,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func MissingSession() *AppError {
	return &AppError{
		Code:       CodeMissingSession,
		Message:    "X-Session-ID header is required",
		HTTPStatus: http.StatusBadRequest,
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

func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsRetryable reports whether err is an infrastructure failure worth retrying.
// Business outcomes are never retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case CodeStoreUnavailable, CodeUnavailable, CodeTimeout:
		return true
	default:
		return false
	}
}
