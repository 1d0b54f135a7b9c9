package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. All handlers MUST use these constants instead of
// hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidJSON  ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidHour  ErrorCode = "validation_invalid_hour"
	ErrCodeValidationInvalidMin   ErrorCode = "validation_invalid_minute"
	ErrCodeValidationInvalidUnit  ErrorCode = "validation_invalid_temperature_unit"

	// Permission (403)
	ErrCodePermissionLocation     ErrorCode = "permission_location_denied"
	ErrCodePermissionNotification ErrorCode = "permission_notification_denied"

	// Not Found (404)
	ErrCodeNotFoundHandle ErrorCode = "not_found_reminder_handle"

	// Upstream weather provider (401/429/502)
	ErrCodeUpstreamUnauthorized ErrorCode = "upstream_unauthorized"
	ErrCodeUpstreamRateLimited  ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamProvider     ErrorCode = "upstream_provider_error"
	ErrCodeUpstreamUnavailable  ErrorCode = "upstream_unavailable"

	// Storage (500)
	ErrCodeStorageRead  ErrorCode = "storage_read_failed"
	ErrCodeStorageWrite ErrorCode = "storage_write_failed"

	// Internal (500)
	ErrCodeInternalScheduler  ErrorCode = "internal_scheduler_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "permission_"):
		return http.StatusForbidden
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case c == ErrCodeUpstreamUnauthorized:
		return http.StatusBadGateway
	case c == ErrCodeUpstreamRateLimited:
		return http.StatusTooManyRequests
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent error formatting,
// HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
