package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio"

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
)

// LockSuffix is appended to the index path to name its lock file.
const LockSuffix = ".lock"

// Store loads and saves a ClassIndex at a fixed path. Writers serialize
// through a lock file beside the index; readers never block.
type Store struct {
	path    string
	version string
	lock    *flock.Flock
	retry   cerrors.RetryConfig
}

// Open returns a Store for path. version stamps newly created indexes.
func Open(path, version string) *Store {
	return &Store{
		path:    path,
		version: version,
		lock:    flock.New(path + LockSuffix),
		retry:   cerrors.DefaultRetryConfig(),
	}
}

// Path returns the index file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the index. A missing file yields an empty index; content
// that does not decode is ERR_204_INDEX_CORRUPT.
func (s *Store) Load() (*ClassIndex, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("index not found, starting empty", slog.String("path", s.path))
		return NewClassIndex(s.version, time.Now().UTC()), nil
	}
	if err != nil {
		return nil, cerrors.PersistenceError("failed to read index", err).WithDetail("path", s.path)
	}

	var ix ClassIndex
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, cerrors.New(cerrors.ErrCodeIndexCorrupt, "index file is not a valid class index", err).
			WithDetail("path", s.path).
			WithSuggestion("Delete the index file and run 'classindex scan' again")
	}
	ix.normalize()

	slog.Debug("index loaded",
		slog.String("path", s.path),
		slog.Int("classes", len(ix.Entries)),
		slog.Int("files", len(ix.FileClasses)))
	return &ix, nil
}

// Save writes the whole index atomically, creating parent directories.
func (s *Store) Save(ix *ClassIndex) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return cerrors.PersistenceError("failed to create index directory", err).WithDetail("path", s.path)
	}

	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return cerrors.PersistenceError("failed to encode index", err)
	}
	if err := renameio.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return cerrors.PersistenceError("failed to write index", err).WithDetail("path", s.path)
	}

	slog.Debug("index saved",
		slog.String("path", s.path),
		slog.Int("classes", len(ix.Entries)))
	return nil
}

// Update loads the index, applies fn and saves the result while holding
// the writer lock. The index is not saved when fn fails.
func (s *Store) Update(ctx context.Context, fn func(*ClassIndex) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.Warn("failed to release index lock", slog.String("error", err.Error()))
		}
	}()

	ix, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(ix); err != nil {
		return err
	}
	return s.Save(ix)
}

func (s *Store) acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return cerrors.PersistenceError("failed to create index directory", err)
	}

	return cerrors.Retry(ctx, s.retry, func() error {
		ok, err := s.lock.TryLock()
		if err != nil {
			return cerrors.PersistenceError("failed to lock index", err)
		}
		if !ok {
			return cerrors.New(cerrors.ErrCodeIndexLocked,
				fmt.Sprintf("index is locked by another process: %s", s.lock.Path()), nil).
				WithSuggestion("Wait for the other classindex process to finish")
		}
		return nil
	})
}
