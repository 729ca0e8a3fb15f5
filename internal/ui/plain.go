package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	noColor bool
	root    string
	stage   Stage
	errors  []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:     cfg.Output,
		noColor: cfg.NoColor,
		root:    cfg.Root,
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	if r.root != "" {
		r.mu.Lock()
		_, _ = fmt.Fprintf(r.out, "Indexing %s\n", r.root)
		r.mu.Unlock()
	}
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = event.Stage

	// Format: [STAGE] current/total - message or file
	var msg string
	if event.Message != "" {
		msg = event.Message
	} else if event.CurrentFile != "" {
		msg = event.CurrentFile
	}

	if event.Total > 0 {
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d - %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	} else if msg != "" {
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}

	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d files, %d classes in %s",
		stats.Files, stats.Classes, stats.Duration.Round(100*time.Millisecond))

	if stats.Errors > 0 || stats.Timeouts > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors, %d timeouts)", stats.Errors, stats.Timeouts)
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintf(r.out, "  With classes: %d (%.1f%%)\n", stats.WithClasses, stats.SuccessRate)
	_, _ = fmt.Fprintf(r.out, "  Empty:        %d\n", stats.Empty)
	_, _ = fmt.Fprintf(r.out, "Index: %d classes across %d files (%d added, %d updated)\n",
		stats.IndexClasses, stats.IndexFiles, stats.Added, stats.Updated)
	if stats.Conflicts > 0 {
		_, _ = fmt.Fprintf(r.out, "  Conflicts:    %d class names defined in more than one file\n", stats.Conflicts)
	}

	if stats.Stages.Scan > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "Stage Breakdown:")
		_, _ = fmt.Fprintf(r.out, "  Discover:  %s\n", stats.Stages.Discover.Round(time.Millisecond))
		_, _ = fmt.Fprintf(r.out, "  Scan:      %s\n", stats.Stages.Scan.Round(time.Millisecond))
		_, _ = fmt.Fprintf(r.out, "  Reconcile: %s\n", stats.Stages.Reconcile.Round(time.Millisecond))
		_, _ = fmt.Fprintf(r.out, "  Save:      %s\n", stats.Stages.Save.Round(time.Millisecond))
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
