// Package output provides consistent CLI output formatting for command results.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/classindex/internal/ui"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer without color.
func New(out io.Writer) *Writer {
	return &Writer{
		out:    out,
		styles: ui.NoColorStyles(),
	}
}

// NewStyled creates a Writer that colors output unless noColor is set or
// out is not a terminal.
func NewStyled(out io.Writer, noColor bool) *Writer {
	return &Writer{
		out:    out,
		styles: ui.GetStyles(noColor || !ui.IsTTY(out)),
	}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("OK"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("WARN"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("ERROR"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Heading prints a section title.
func (w *Writer) Heading(title string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(title))
}

// Field prints an indented label/value pair with the label padded to width.
func (w *Writer) Field(label string, width int, value any) {
	pad := max(width-len(label), 0)
	_, _ = fmt.Fprintf(w.out, "  %s%s %s\n",
		w.styles.Label.Render(label+":"),
		strings.Repeat(" ", pad),
		w.styles.Value.Render(fmt.Sprint(value)))
}

// Dim prints a de-emphasized line.
func (w *Writer) Dim(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(msg))
}

// Line prints msg unstyled.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Linef prints a formatted unstyled line.
func (w *Writer) Linef(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Code prints a code block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
