// Package errors provides structured error handling for classindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (files, directories, the persisted index)
//   - 4XX: Validation errors (including per-file extraction failures)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, directory and index I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates rejected input, including unparseable files.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeReadFailed        = "ERR_201_READ_FAILED"
	ErrCodeDirectoryInvalid  = "ERR_202_DIRECTORY_INVALID"
	ErrCodePersistenceFailed = "ERR_203_PERSISTENCE_FAILED"
	ErrCodeIndexCorrupt      = "ERR_204_INDEX_CORRUPT"
	ErrCodeIndexLocked       = "ERR_205_INDEX_LOCKED"

	// Validation errors (400-499)
	ErrCodeInvalidInput  = "ERR_401_INVALID_INPUT"
	ErrCodeParseFailed   = "ERR_402_PARSE_FAILED"
	ErrCodeParseTimeout  = "ERR_403_PARSE_TIMEOUT"
	ErrCodeClassNotFound = "ERR_404_CLASS_NOT_FOUND"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeExportFailed = "ERR_502_EXPORT_FAILED"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "201" from "ERR_201_READ_FAILED"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDirectoryInvalid, ErrCodePersistenceFailed, ErrCodeIndexCorrupt:
		return SeverityFatal
	case ErrCodeParseTimeout, ErrCodeIndexLocked:
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	return code == ErrCodeIndexLocked
}
