package errors

import (
	"errors"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message.
// If debug is true, the underlying cause is included.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	var ce *ClassError
	if !errors.As(err, &ce) {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(ce.Message)
	sb.WriteString("\n")

	if debug && ce.Cause != nil {
		sb.WriteString("Cause: ")
		sb.WriteString(ce.Cause.Error())
		sb.WriteString("\n")
	}

	if ce.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(ce.Suggestion)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", ce.Code))
	return sb.String()
}

// FormatForCLI formats an error for CLI output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var ce *ClassError
	if !errors.As(err, &ce) {
		ce = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ce.Message))
	if ce.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ce.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ce.Code))
	return sb.String()
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	var ce *ClassError
	if !errors.As(err, &ce) {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": ce.Code,
		"message":    ce.Message,
		"category":   string(ce.Category),
		"severity":   string(ce.Severity),
		"retryable":  ce.Retryable,
	}

	if ce.Cause != nil {
		result["cause"] = ce.Cause.Error()
	}
	if ce.Suggestion != "" {
		result["suggestion"] = ce.Suggestion
	}
	for k, v := range ce.Details {
		result["detail_"+k] = v
	}

	return result
}
