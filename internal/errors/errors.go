package errors

import (
	"errors"
	"fmt"
)

// ClassError is the structured error type for classindex.
// It carries enough context for logging, CLI presentation and
// deciding whether a failure is fatal to the calling operation.
type ClassError struct {
	// Code is the unique error code (e.g., "ERR_402_PARSE_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *ClassError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ClassError) Unwrap() error {
	return e.Cause
}

// Is matches another ClassError by code, so errors.Is works against
// sentinel values built with New.
func (e *ClassError) Is(target error) bool {
	if t, ok := target.(*ClassError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *ClassError) WithDetail(key, value string) *ClassError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *ClassError) WithSuggestion(suggestion string) *ClassError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ClassError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *ClassError {
	return &ClassError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a ClassError from an existing error.
// The error's message becomes the ClassError message.
func Wrap(code string, err error) *ClassError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *ClassError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ReadError reports a source file that could not be read or decoded.
func ReadError(path string, cause error) *ClassError {
	return New(ErrCodeReadFailed, fmt.Sprintf("failed to read %s", path), cause).
		WithDetail("path", path)
}

// ParseError reports content rejected by an extractor.
func ParseError(path string, cause error) *ClassError {
	msg := "failed to parse"
	if cause != nil {
		msg = cause.Error()
	}
	return New(ErrCodeParseFailed, msg, cause).WithDetail("path", path)
}

// TimeoutError reports an extraction that exceeded its deadline.
func TimeoutError(path string, seconds int) *ClassError {
	return New(ErrCodeParseTimeout,
		fmt.Sprintf("parsing %s exceeded %ds", path, seconds), nil).
		WithDetail("path", path)
}

// PersistenceError reports an index load or save failure.
func PersistenceError(message string, cause error) *ClassError {
	return New(ErrCodePersistenceFailed, message, cause)
}

// DirectoryError reports a scan root or output directory that cannot be used.
func DirectoryError(path string, cause error) *ClassError {
	return New(ErrCodeDirectoryInvalid, fmt.Sprintf("directory unusable: %s", path), cause).
		WithDetail("path", path)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *ClassError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *ClassError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ce *ClassError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the calling operation.
func IsFatal(err error) bool {
	var ce *ClassError
	if errors.As(err, &ce) {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a ClassError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ce *ClassError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a ClassError.
func GetCategory(err error) Category {
	var ce *ClassError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}
