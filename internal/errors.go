package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeTransport    ErrorType = "TRANSPORT_ERROR"
	ErrorTypeAPI          ErrorType = "API_ERROR"
	ErrorTypeStorage      ErrorType = "STORAGE_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeForbiddenAccess    ErrorCode = "FORBIDDEN_ACCESS"

	ErrCodeRequestFailed  ErrorCode = "REQUEST_FAILED"
	ErrCodeBadResponse    ErrorCode = "BAD_RESPONSE"
	ErrCodeResourceMissed ErrorCode = "RESOURCE_NOT_FOUND"

	ErrCodeCorruptRecord ErrorCode = "CORRUPT_RECORD"
	ErrCodeStorageFailed ErrorCode = "STORAGE_FAILED"
)

// AppError is the normalized error shape every subsystem hands upward.
// Transport failures, API rejections, and storage faults all end up here so
// callers never see a raw *url.Error or gorm error.
type AppError struct {
	Type       ErrorType `json:"type"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType `json:"type"`
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
	})
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewTransportError covers timeouts and connectivity failures: no HTTP
// status, generic message, the underlying error kept as cause.
func NewTransportError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeTransport,
		Code:    ErrCodeRequestFailed,
		Message: message,
		Cause:   cause,
	}
}

func NewAPIError(statusCode int, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeAPI,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func NewStorageError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeStorage,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrNotAuthenticated   = NewUnauthorizedError("Not authenticated", ErrCodeNotAuthenticated)
	ErrCorruptRecord      = NewStorageError("Persisted record is corrupt", ErrCodeCorruptRecord, nil)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotAuthenticated reports whether err is the expected-unauthenticated
// outcome (a 401 meaning "no session yet"), which callers must not surface
// as a user-facing error.
func IsNotAuthenticated(err error) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code == ErrCodeNotAuthenticated
	}
	return false
}

// ErrorMessage extracts the human-readable message from a normalized error,
// falling back to err.Error() for anything that escaped normalization.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
