package common

import (
	"errors"
	"fmt"
)

// ErrorCode represents different types of module errors
type ErrorCode string

const (
	// ErrCodeConfiguration marks invalid or incompatible user input, such as a
	// log source type or protocol that QRadar does not know.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeNotFound marks a resource that had to exist for the operation.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeTransport marks a failed exchange with the QRadar API.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeValidationFailed marks module arguments rejected before any network call.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a structured module error
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new module error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewAppErrorWithDetails creates a new module error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewAppErrorWithCause creates a new module error with an underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapError wraps an existing error with module error context
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve it
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return NewAppErrorWithCause(code, message, err)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasErrorCode checks if the error has a specific error code
func HasErrorCode(err error, code ErrorCode) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == code
	}
	return false
}

// UserMessage returns the message that should be shown to the module caller.
// Transport and internal errors keep their cause so the failure is diagnosable.
func UserMessage(err error) string {
	appErr := GetAppError(err)
	if appErr == nil {
		return err.Error()
	}
	switch appErr.Code {
	case ErrCodeConfiguration, ErrCodeNotFound, ErrCodeValidationFailed:
		return appErr.Message
	}
	if appErr.Cause != nil {
		return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
	}
	return appErr.Message
}

// ErrConfiguration creates a configuration error
func ErrConfiguration(message string) *AppError {
	return NewAppError(ErrCodeConfiguration, message)
}

// ErrNotFound creates a not found error
func ErrNotFound(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message)
}

// ErrTransport creates a transport error
func ErrTransport(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrCodeTransport, message, cause)
}

// ErrValidationFailed creates a validation failed error
func ErrValidationFailed(message string) *AppError {
	return NewAppError(ErrCodeValidationFailed, message)
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "internal module error"
	}
	return NewAppError(ErrCodeInternal, message)
}

// ValidationError represents a single argument validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	if len(ve) == 1 {
		return ve[0].String()
	}

	msg := ve[0].String()
	for _, e := range ve[1:] {
		msg += "; " + e.String()
	}
	return msg
}

// String renders a single validation error
func (e ValidationError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Field)
}

// ToAppError converts ValidationErrors to AppError
func (ve ValidationErrors) ToAppError() *AppError {
	if len(ve) == 0 {
		return nil
	}

	appErr := ErrValidationFailed(ve.Error())
	appErr.WithContext("validation_errors", []ValidationError(ve))

	return appErr
}

// Add adds a validation error
func (ve *ValidationErrors) Add(field, message string, value interface{}) {
	*ve = append(*ve, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}
