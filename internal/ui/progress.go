package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// maxListedErrors bounds the per-file problems repeated in the summary.
const maxListedErrors = 10

// BarRenderer draws a progress bar for the scan stage and a styled
// summary at the end. Other stages print one line each.
type BarRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	root   string
	styles Styles
	bar    *progressbar.ProgressBar
	stage  Stage
	errors []ErrorEvent
}

// NewBarRenderer creates a progress bar renderer writing to cfg.Output.
func NewBarRenderer(cfg Config) *BarRenderer {
	return &BarRenderer{
		out:    cfg.Output,
		root:   cfg.Root,
		styles: GetStyles(cfg.NoColor),
	}
}

// Start implements Renderer.
func (r *BarRenderer) Start(ctx context.Context) error {
	if r.root != "" {
		r.mu.Lock()
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Header.Render("classindex"), r.styles.Label.Render(r.root))
		r.mu.Unlock()
	}
	return nil
}

// UpdateProgress implements Renderer.
func (r *BarRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.stage {
		r.finishBar()
		r.stage = event.Stage
	}

	if event.Stage == StageScan && event.Total > 0 {
		if r.bar == nil {
			r.bar = r.newBar(event.Total)
		}
		_ = r.bar.Set(event.Current)
		return
	}

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}
	if msg != "" {
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Stage.Render(event.Stage.String()), msg)
	}
}

func (r *BarRenderer) newBar(total int) *progressbar.ProgressBar {
	out := r.out
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(out)
		}),
	)
}

func (r *BarRenderer) finishBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
}

// AddError implements Renderer. Problems are held until Complete so they
// do not tear the bar.
func (r *BarRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, event)
}

// Complete implements Renderer.
func (r *BarRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishBar()
	r.stage = StageComplete

	s := r.styles
	field := func(label string, value any) string {
		return fmt.Sprintf("%s %s", s.Label.Render(fmt.Sprintf("%-14s", label)), s.Value.Render(fmt.Sprint(value)))
	}

	lines := []string{
		s.Header.Render(fmt.Sprintf("Scanned %d files in %s", stats.Files, stats.Duration.Round(100*time.Millisecond))),
		field("With classes", fmt.Sprintf("%d (%.1f%%)", stats.WithClasses, stats.SuccessRate)),
		field("Empty", stats.Empty),
		field("Errors", stats.Errors),
		field("Timeouts", stats.Timeouts),
		field("Classes found", stats.Classes),
		"",
		field("Index classes", stats.IndexClasses),
		field("Index files", stats.IndexFiles),
		field("Added", stats.Added),
		field("Updated", stats.Updated),
	}
	if stats.Conflicts > 0 {
		lines = append(lines, s.Warning.Render(fmt.Sprintf("%d class names defined in more than one file", stats.Conflicts)))
	}

	_, _ = fmt.Fprintln(r.out, s.Panel.Render(strings.Join(lines, "\n")))

	for i, e := range r.errors {
		if i == maxListedErrors {
			_, _ = fmt.Fprintln(r.out, s.Dim.Render(fmt.Sprintf("... and %d more", len(r.errors)-maxListedErrors)))
			break
		}
		style := s.Error
		if e.IsWarn {
			style = s.Warning
		}
		_, _ = fmt.Fprintf(r.out, "%s %s: %v\n", style.Render("!"), e.File, e.Err)
	}
}

// Stop implements Renderer.
func (r *BarRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishBar()
	return nil
}
