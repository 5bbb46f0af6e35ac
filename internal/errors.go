package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeStoreFailure ErrorType = "STORE_FAILURE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed         ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidPeriod            ErrorCode = "INVALID_PERIOD"
	ErrCodeInvalidStatusFilter      ErrorCode = "INVALID_STATUS_FILTER"
	ErrCodeInvalidApprovalReference ErrorCode = "INVALID_APPROVAL_REFERENCE"
	ErrCodeInvalidTransition        ErrorCode = "INVALID_TRANSITION"
	ErrCodeInvalidResetPolicy       ErrorCode = "INVALID_RESET_POLICY"

	ErrCodeApprovalNotFound ErrorCode = "APPROVAL_NOT_FOUND"
	ErrCodeApprovalConflict ErrorCode = "APPROVAL_CONFLICT"

	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"

	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeForbidden    ErrorCode = "INSUFFICIENT_PERMISSIONS"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage joins every field-level message, or falls back to Message.
func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			return strings.Join(messages, "; ")
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so that a copied error still compares equal
// to the sentinel it was derived from.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy carrying cause. Sentinels are shared, so they are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
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

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewStoreError wraps a persistence failure (connectivity, constraint, timeout).
func NewStoreError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeStoreFailure,
		Code:       ErrCodeStoreFailure,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// User-facing messages are localized; the engine's callers only show Message.
var (
	ErrApprovalNotFound         = NewNotFoundError("Data approval tidak ditemukan", ErrCodeApprovalNotFound)
	ErrApprovalConflict         = NewConflictError("Status approval telah diubah oleh proses lain, silakan muat ulang", ErrCodeApprovalConflict)
	ErrInvalidApprovalReference = NewValidationError("Approval harus merujuk tepat satu data kas atau doa lingkungan", ErrCodeInvalidApprovalReference)
	ErrInvalidTransition        = NewValidationError("Perubahan status approval tidak diizinkan", ErrCodeInvalidTransition)
	ErrInvalidPeriod            = NewValidationError("Format periode tidak valid, gunakan {tahun|all}-{bulan|all}", ErrCodeInvalidPeriod)
	ErrInvalidStatusFilter      = NewValidationError("Filter status tidak valid", ErrCodeInvalidStatusFilter)

	ErrInvalidToken = NewUnauthorizedError("Sesi tidak valid", ErrCodeInvalidToken)
	ErrTokenExpired = NewUnauthorizedError("Sesi telah berakhir", ErrCodeTokenExpired)
	ErrForbidden    = NewForbiddenError("Anda tidak memiliki akses untuk tindakan ini", ErrCodeForbidden)
)

// IsAppError unwraps err until it finds an *AppError.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
