package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/classindex/internal/scanner"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified or replaced.
	OpModify
	// OpDelete indicates a file was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a change to one accepted file.
type FileEvent struct {
	// Path is the absolute path of the file.
	Path string

	Operation Operation

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before emitting coalesced events.
	// Default: 200ms
	DebounceWindow time.Duration

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 100
	EventBufferSize int

	// Extensions and Exclude filter events the same way discovery does.
	Extensions []string
	Exclude    []string
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		EventBufferSize: 100,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// Watcher watches a tree recursively with fsnotify.
type Watcher struct {
	fsWatcher      *fsnotify.Watcher
	filter         *scanner.Scanner
	debouncer      *Debouncer
	events         chan []FileEvent
	errors         chan error
	ready          chan struct{}
	stopCh         chan struct{}
	rootPath       string
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// New creates a watcher. Invalid exclude patterns are rejected.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()

	filter, err := scanner.New(scanner.Options{Extensions: opts.Extensions, Exclude: opts.Exclude})
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		filter:    filter,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		ready:     make(chan struct{}),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches root until ctx is cancelled or Stop is called. Ready is
// closed once every directory is registered.
func (w *Watcher) Start(ctx context.Context, root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.mu.Lock()
	w.rootPath = absPath
	w.mu.Unlock()

	if err := w.addRecursive(absPath, false); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}
	close(w.ready)
	slog.Info("watch_started", slog.String("root", absPath))

	go w.forwardDebouncedEvents(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// handleFsnotifyEvent converts and filters fsnotify events.
func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)

	info, statErr := os.Stat(event.Name)
	isDir := statErr == nil && info.IsDir()

	if isDir {
		// New directories are registered, and files already inside them
		// are reported as created.
		if event.Op&fsnotify.Create != 0 && !w.filter.Excluded(rel, true) {
			if err := w.addRecursive(event.Name, true); err != nil {
				w.emitError(err)
			}
		}
		return
	}

	if !w.filter.Accepts(event.Name) || w.filter.Excluded(rel, false) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		// The new name of a renamed file arrives as its own CREATE.
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: event.Name, Operation: op, Timestamp: time.Now()})
}

// forwardDebouncedEvents forwards debounced batches to the output channel.
func (w *Watcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emitEvents(events)
		}
	}
}

// addRecursive registers dir and every non-excluded directory below it.
// With announce, accepted files found on the way are reported as created.
func (w *Watcher) addRecursive(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		rel, _ := filepath.Rel(w.rootPath, path)
		rel = filepath.ToSlash(rel)

		if !d.IsDir() {
			if announce && w.filter.Accepts(path) && !w.filter.Excluded(rel, false) {
				w.debouncer.Add(FileEvent{Path: path, Operation: OpCreate, Timestamp: time.Now()})
			}
			return nil
		}

		if rel != "." && w.filter.Excluded(rel, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// emitEvents sends a batch without blocking. The read lock keeps Stop
// from closing the channel mid-send.
func (w *Watcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.events <- events:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped_batches", count))
	}
}

// DroppedBatches returns the number of batches dropped due to buffer overflow.
func (w *Watcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	err := w.fsWatcher.Close()

	close(w.events)
	close(w.errors)
	return err
}

// Ready is closed once Start has registered the tree.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Events returns the channel of batched file events.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// RootPath returns the root path being watched.
func (w *Watcher) RootPath() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rootPath
}

// Split separates a batch into paths to rescan and paths that were deleted.
func Split(batch []FileEvent) (changed, deleted []string) {
	for _, e := range batch {
		if e.Operation == OpDelete {
			deleted = append(deleted, e.Path)
		} else {
			changed = append(changed, e.Path)
		}
	}
	return changed, deleted
}
