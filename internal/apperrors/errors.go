// Package apperrors defines the error taxonomy shared by the lifecycle engine
// and the HTTP layer. Every error carries the HTTP status it maps to.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation_error"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeConflict           ErrorType = "conflict"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypeForbidden          ErrorType = "forbidden"
	ErrorTypeRateLimited        ErrorType = "rate_limited"
	ErrorTypeStorage            ErrorType = "storage_error"
	ErrorTypeStorageUnavailable ErrorType = "storage_unavailable"
)

// AppError is an error with a type, a client-safe message and an HTTP status.
// Cause is never serialized; it only feeds server-side logs.
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the caller may retry the same operation unchanged.
func (e *AppError) Retryable() bool {
	return e.Type == ErrorTypeStorageUnavailable || e.Type == ErrorTypeRateLimited
}

func newError(t ErrorType, code int, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{Type: t, Message: message, Code: code, Details: detail}
}

func NewValidationError(message string, details ...string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

func NewNotFoundError(message string, details ...string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, details)
}

func NewConflictError(message string, details ...string) *AppError {
	return newError(ErrorTypeConflict, http.StatusConflict, message, details)
}

func NewUnauthorizedError(message string, details ...string) *AppError {
	return newError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details)
}

func NewForbiddenError(message string, details ...string) *AppError {
	return newError(ErrorTypeForbidden, http.StatusForbidden, message, details)
}

func NewRateLimitedError(message string, details ...string) *AppError {
	return newError(ErrorTypeRateLimited, http.StatusTooManyRequests, message, details)
}

// NewStorageError wraps a failed statement. The message shown to clients is
// always generic.
func NewStorageError(cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeStorage,
		Message: "internal server error",
		Code:    http.StatusInternalServerError,
		Cause:   cause,
	}
}

// NewStorageUnavailableError wraps a timeout or lost connection.
func NewStorageUnavailableError(cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeStorageUnavailable,
		Message: "storage unavailable, retry later",
		Code:    http.StatusServiceUnavailable,
		Cause:   cause,
	}
}

func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

func is(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

func IsValidation(err error) bool   { return is(err, ErrorTypeValidation) }
func IsNotFound(err error) bool     { return is(err, ErrorTypeNotFound) }
func IsConflict(err error) bool     { return is(err, ErrorTypeConflict) }
func IsUnauthorized(err error) bool { return is(err, ErrorTypeUnauthorized) }

// IsStorage reports either storage class.
func IsStorage(err error) bool {
	return is(err, ErrorTypeStorage) || is(err, ErrorTypeStorageUnavailable)
}
