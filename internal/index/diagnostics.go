package index

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/zeebo/xxh3"

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
	"github.com/Aman-CERP/classindex/internal/extract"
)

// TimeoutLogName is the diagnostics file listing timed out paths.
const TimeoutLogName = "timeout_files.log"

// Diagnostics writes per-file failure reports into a directory.
// It is safe for concurrent use.
type Diagnostics struct {
	dir     string
	verbose bool

	mu       sync.Mutex
	timeouts []string
}

// NewDiagnostics creates dir if needed. With verbose, parse failure
// reports also carry the error location and the full file content.
func NewDiagnostics(dir string, verbose bool) (*Diagnostics, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cerrors.DirectoryError(dir, err)
	}
	return &Diagnostics{dir: dir, verbose: verbose}, nil
}

// Dir returns the output directory.
func (d *Diagnostics) Dir() string {
	return d.dir
}

// ParseErrorLogName returns the report file name for path: the base name
// with every non-alphanumeric rune replaced by an underscore, followed by
// a short hash of the full path so equal base names do not collide.
func ParseErrorLogName(path string) string {
	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, filepath.Base(path))
	return fmt.Sprintf("parse_error_%s_%08x.log", sanitized, uint32(xxh3.HashString(path)))
}

// ParseFailure writes the report for one file that failed to parse.
// Write failures are logged and otherwise ignored.
func (d *Diagnostics) ParseFailure(path string, cause error, content string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Error parsing file: %s\n", path)
	fmt.Fprintf(&b, "Error details: %v\n", cause)
	if d.verbose {
		fmt.Fprintf(&b, "Location: %s\n", location(cause))
		fmt.Fprintf(&b, "\nFile content:\n%s\n", content)
	}

	target := filepath.Join(d.dir, ParseErrorLogName(path))
	if err := os.WriteFile(target, []byte(b.String()), 0o644); err != nil {
		slog.Error("failed to write parse error report",
			slog.String("path", target),
			slog.String("error", err.Error()))
		return
	}
	slog.Debug("wrote parse error report", slog.String("path", target))
}

// Timeout records a timed out path for the next Flush.
func (d *Diagnostics) Timeout(path string) {
	d.mu.Lock()
	d.timeouts = append(d.timeouts, path)
	d.mu.Unlock()
}

// Flush writes TimeoutLogName when any timeouts were recorded.
func (d *Diagnostics) Flush() error {
	d.mu.Lock()
	timeouts := append([]string(nil), d.timeouts...)
	d.mu.Unlock()

	if len(timeouts) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Files that timed out during parsing:\n")
	for _, p := range timeouts {
		b.WriteString(p)
		b.WriteByte('\n')
	}

	target := filepath.Join(d.dir, TimeoutLogName)
	if err := os.WriteFile(target, []byte(b.String()), 0o644); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeDirectoryInvalid, err).WithDetail("path", target)
	}
	slog.Warn("files timed out during parsing",
		slog.Int("count", len(timeouts)),
		slog.String("report", target))
	return nil
}

func location(err error) string {
	var perr *extract.ParseError
	if errors.As(err, &perr) {
		return perr.Location()
	}
	msg := err.Error()
	if i := strings.Index(msg, "line"); i >= 0 {
		return msg[i:]
	}
	return "unknown"
}
