// Package errors provides structured error handling for netenum operations.
// It defines error codes for the scan pipeline and the API surface, typed
// errors carrying those codes, and helpers to map them onto HTTP statuses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeConfiguration ErrorCode = "CONFIG_INVALID"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Scan pipeline errors.
	CodeProbeFailed    ErrorCode = "PROBE_FAILED"
	CodeScanInProgress ErrorCode = "SCAN_IN_PROGRESS"

	// Storage errors.
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	// API errors.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeRateLimited  ErrorCode = "RATE_LIMITED"
)

// ScanError represents an error raised by the scan pipeline.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Target != "" {
		msg += fmt.Sprintf(" (target: %s)", e.Target)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{Code: code, Message: message}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Cause: err}
}

// WrapScanErrorWithTarget wraps an error with target information.
func WrapScanErrorWithTarget(code ErrorCode, message, target string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Target: target, Cause: err}
}

// StorageError represents result store errors.
type StorageError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Operation != "" {
		msg += fmt.Sprintf(" (operation: %s)", e.Operation)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error.
func NewStorageError(code ErrorCode, message, operation string) *StorageError {
	return &StorageError{Code: code, Message: message, Operation: operation}
}

// WrapStorageError wraps an existing error as a storage error.
func WrapStorageError(code ErrorCode, message, operation string, err error) *StorageError {
	return &StorageError{Code: code, Message: message, Operation: operation, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    CodeConfiguration,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(message string, err error) *ConfigError {
	return &ConfigError{Code: CodeConfiguration, Message: message, Cause: err}
}

// Utility functions for common error operations

// GetCode extracts the error code from the first coded error in the chain.
func GetCode(err error) ErrorCode {
	var scanErr *ScanError
	if stderrors.As(err, &scanErr) {
		return scanErr.Code
	}
	var storageErr *StorageError
	if stderrors.As(err, &storageErr) {
		return storageErr.Code
	}
	var configErr *ConfigError
	if stderrors.As(err, &configErr) {
		return configErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// HTTPStatus maps an error onto the status code the API answers with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeScanInProgress:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Common error creation functions

// ErrInvalidNetwork creates an error for a malformed CIDR.
func ErrInvalidNetwork(network string) *ScanError {
	return &ScanError{Code: CodeInvalidInput, Message: "Invalid network CIDR", Target: network}
}

// ErrScanInProgress is returned when a run is requested while another is active.
func ErrScanInProgress() *ScanError {
	return NewScanError(CodeScanInProgress, "A scan is already in progress")
}

// ErrProbeFailed wraps a failed external probe invocation.
func ErrProbeFailed(target string, err error) *ScanError {
	return WrapScanErrorWithTarget(CodeProbeFailed, "Probe failed", target, err)
}

// ErrNoSnapshot reports that no scan has been persisted yet.
func ErrNoSnapshot() *StorageError {
	return NewStorageError(CodeNotFound, "No scan results found", "load")
}

// ErrPersistence wraps a failed snapshot write.
func ErrPersistence(operation string, err error) *StorageError {
	return WrapStorageError(CodePersistenceFailed, "Failed to persist scan snapshot", operation, err)
}
