package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for each error type
type ErrorCode string

const (
	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Pipeline construction
	ErrCodeMissingDependency    ErrorCode = "MISSING_DEPENDENCY"
	ErrCodeConfigurationWarning ErrorCode = "CONFIGURATION_WARNING"

	// File processing errors
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeFileParseError    ErrorCode = "FILE_PARSE_ERROR"
	ErrCodeStorageError      ErrorCode = "STORAGE_ERROR"

	// Infrastructure errors
	ErrCodeDatabaseError  ErrorCode = "DATABASE_ERROR"
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeQueueError     ErrorCode = "QUEUE_ERROR"
	ErrCodeCacheError     ErrorCode = "CACHE_ERROR"
)

// Process exit codes used by the CLI
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitUnavailable = 69 // sysexits EX_UNAVAILABLE
	ExitDataErr     = 65 // sysexits EX_DATAERR
)

// AppError represents a structured application error
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	ExitCode int                    `json:"-"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Err      error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string, exitCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: exitCode,
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code ErrorCode, message string, exitCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: exitCode,
		Err:      err,
	}
}

// Common error constructors

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message, ExitFailure)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternal, message, ExitFailure)
}

func InvalidInput(message string) *AppError {
	return New(ErrCodeInvalidInput, message, ExitUsage)
}

// Pipeline construction errors

// MissingDependency reports a capability that an enabled pipeline flag requires
// but that could not be acquired at construction time.
func MissingDependency(capability string, err error) *AppError {
	appErr := Wrap(err, ErrCodeMissingDependency,
		fmt.Sprintf("required capability unavailable: %s", capability),
		ExitUnavailable)
	return appErr.WithDetails("capability", capability)
}

// ConfigurationWarning describes a configuration value that was corrected
// automatically. It is logged, never returned as a failure.
func ConfigurationWarning(message string) *AppError {
	return New(ErrCodeConfigurationWarning, message, ExitOK)
}

// File processing errors

func UnsupportedFormat(format string) *AppError {
	return New(ErrCodeUnsupportedFormat,
		fmt.Sprintf("unsupported file format: %s", format),
		ExitUsage)
}

func FileParseError(err error, path string) *AppError {
	return Wrap(err, ErrCodeFileParseError, "failed to parse file", ExitDataErr).
		WithDetails("path", path)
}

func StorageError(err error, message string) *AppError {
	return Wrap(err, ErrCodeStorageError, message, ExitFailure)
}

// Infrastructure errors

func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, "database operation failed", ExitUnavailable)
}

func RecordNotFound(resource string) *AppError {
	return New(ErrCodeRecordNotFound,
		fmt.Sprintf("%s not found", resource),
		ExitFailure)
}

func QueueError(err error, message string) *AppError {
	return Wrap(err, ErrCodeQueueError, message, ExitUnavailable)
}

func CacheError(err error, message string) *AppError {
	return Wrap(err, ErrCodeCacheError, message, ExitUnavailable)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether err carries an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

// ExitCodeOf returns the process exit status for err
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	if appErr, ok := GetAppError(err); ok && appErr.ExitCode != ExitOK {
		return appErr.ExitCode
	}
	return ExitFailure
}
