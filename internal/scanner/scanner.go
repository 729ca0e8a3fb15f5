// Package scanner discovers class source files under a root directory.
// Symbolic links are followed; directory cycles are detected by real path.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
)

// DefaultExtensions are accepted when Options.Extensions is empty.
var DefaultExtensions = []string{"cpp", "hpp"}

// Options configures discovery.
type Options struct {
	// Extensions accepted, case-insensitive, leading dot optional.
	Extensions []string

	// Exclude holds doublestar patterns matched against the slash
	// separated path relative to the root.
	Exclude []string
}

// Scanner discovers files with accepted extensions.
type Scanner struct {
	exts    map[string]struct{}
	exclude []string
}

// New creates a Scanner. Invalid exclude patterns are rejected.
func New(opts Options) (*Scanner, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	s := &Scanner{exts: make(map[string]struct{}, len(exts))}
	for _, ext := range exts {
		ext = normalizeExt(ext)
		if ext == "" {
			continue
		}
		s.exts[ext] = struct{}{}
	}
	if len(s.exts) == 0 {
		return nil, cerrors.ValidationError("no usable file extensions", nil)
	}

	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, cerrors.ValidationError(fmt.Sprintf("invalid exclude pattern: %q", p), nil)
		}
		s.exclude = append(s.exclude, p)
	}
	return s, nil
}

// Accepts reports whether name has an accepted extension.
func (s *Scanner) Accepts(name string) bool {
	_, ok := s.exts[normalizeExt(filepath.Ext(name))]
	return ok
}

// Excluded reports whether the slash separated relative path matches an
// exclude pattern. Directories also match patterns covering everything
// beneath them, so "**/.git/**" excludes ".git" itself.
func (s *Scanner) Excluded(rel string, isDir bool) bool {
	base := path.Base(rel)
	for _, p := range s.exclude {
		if match(p, rel) {
			return true
		}
		if !strings.Contains(p, "/") && match(p, base) {
			return true
		}
		if isDir && strings.HasSuffix(p, "/**") && match(strings.TrimSuffix(p, "/**"), rel) {
			return true
		}
	}
	return false
}

// Discover returns the sorted paths of accepted files beneath root.
// Returned paths are root joined with the relative path.
func (s *Scanner) Discover(ctx context.Context, root string) ([]string, error) {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, cerrors.DirectoryError(root, err)
	}
	if !info.IsDir() {
		return nil, cerrors.DirectoryError(root, errors.New("not a directory"))
	}

	w := &walker{scanner: s, visited: make(map[string]struct{})}
	if err := w.walk(ctx, root, ""); err != nil {
		return nil, err
	}

	sort.Strings(w.files)
	slog.Debug("discovery complete",
		slog.String("root", root),
		slog.Int("files", len(w.files)))
	return w.files, nil
}

type walker struct {
	scanner *Scanner
	visited map[string]struct{}
	files   []string
}

func (w *walker) walk(ctx context.Context, dir, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return cerrors.ReadError(dir, err)
	}
	if _, seen := w.visited[real]; seen {
		slog.Debug("skipping already visited directory",
			slog.String("path", dir),
			slog.String("real_path", real))
		return nil
	}
	w.visited[real] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return cerrors.ReadError(dir, err)
	}

	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		relPath := path.Join(rel, e.Name())

		mode := e.Type()
		if mode&fs.ModeSymlink != 0 {
			target, err := os.Stat(full)
			if err != nil {
				slog.Warn("skipping broken symlink",
					slog.String("path", full),
					slog.String("error", err.Error()))
				continue
			}
			mode = target.Mode().Type()
		}

		switch {
		case mode.IsDir():
			if w.scanner.Excluded(relPath, true) {
				continue
			}
			if err := w.walk(ctx, full, relPath); err != nil {
				return err
			}
		case mode.IsRegular():
			if !w.scanner.Accepts(e.Name()) || w.scanner.Excluded(relPath, false) {
				continue
			}
			w.files = append(w.files, full)
		}
	}
	return nil
}

func match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
