// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package apperr defines the centralized error handling framework for Tikra.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Taxonomy: Every code maps to exactly one default HTTP status.
  - Mapping: The HTTP edge converts an [AppError] to a response in a single place.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Stable Error Codes

// Machine-readable error codes shared with embedded clients. These are part
// of the wire contract and must never be renamed.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeTokenMissing           = "TOKEN_MISSING"
	CodeTokenInvalid           = "TOKEN_INVALID"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeInvalidSession         = "INVALID_SESSION"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken    = "INVALID_REFRESH_TOKEN"
	CodeAccessDenied           = "ACCESS_DENIED"
	CodeAdminRequired          = "ADMIN_REQUIRED"
	CodeProjectNotFound        = "PROJECT_NOT_FOUND"
	CodeEntryNotFound          = "ENTRY_NOT_FOUND"
	CodeEntriesNotFound        = "ENTRIES_NOT_FOUND"
	CodeNoActiveTimer          = "NO_ACTIVE_TIMER"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeTimerConflict          = "TIMER_CONFLICT"
	CodeTimerRunning           = "TIMER_RUNNING"
	CodeUserExists             = "USER_EXISTS"
	CodeEntityStale            = "ENTITY_STALE"
	CodeInvalidEndTime         = "INVALID_END_TIME"
	CodeInvalidCurrentPassword = "INVALID_CURRENT_PASSWORD"
	CodeRateLimited            = "RATE_LIMIT_EXCEEDED"
	CodeInternal               = "INTERNAL_ERROR"
)

// AppError is the canonical error type for the Tikra API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and optional structured details.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "TIMER_CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details carries structured context for the client. For validation
	// failures it is a slice of [FieldError]; for timer conflicts and stale
	// updates it carries the current server record.
	Details any `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithDetails returns a shallow copy of the error with structured details attached.
func (e *AppError) WithDetails(details any) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// # Client Errors (4xx)

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	appError := &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
	if len(details) > 0 {
		appError.Details = details
	}
	return appError
}

// BadRequest creates a 400 [AppError] with a specific taxonomy code
// (e.g. INVALID_END_TIME, INVALID_CURRENT_PASSWORD).
func BadRequest(code, msg string) *AppError {
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Unauthorized creates a 401 [AppError] with the given taxonomy code.
func Unauthorized(code, msg string) *AppError {
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError] with the given taxonomy code.
func Forbidden(code, msg string) *AppError {
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// NotFound creates a 404 [AppError] with the given taxonomy code.
//
// Example:
//
//	apperr.NotFound(apperr.CodeProjectNotFound, "Project not found")
func NotFound(code, msg string) *AppError {
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: http.StatusNotFound,
	}
}

// Conflict creates a 409 [AppError] for duplicate or invariant violations.
func Conflict(code, msg string) *AppError {
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// RateLimited creates a 429 [AppError] carrying a retry hint in seconds.
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
		Details:    map[string]int{"retryAfter": retryAfterSeconds},
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsCode reports whether err is an [*AppError] carrying the given code.
func IsCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
