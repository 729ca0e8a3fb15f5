// Package ui renders scan progress and completion summaries.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage represents a pipeline stage.
type Stage int

const (
	// StageDiscover enumerates candidate files under the root.
	StageDiscover Stage = iota
	// StageScan extracts classes from each file.
	StageScan
	// StageReconcile merges records into the class index.
	StageReconcile
	// StageSave writes the index document.
	StageSave
	// StageComplete indicates the run is complete.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageDiscover:
		return "Discovering"
	case StageScan:
		return "Scanning"
	case StageReconcile:
		return "Reconciling"
	case StageSave:
		return "Saving"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage icon for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageDiscover:
		return "FIND"
	case StageScan:
		return "SCAN"
	case StageReconcile:
		return "MERGE"
	case StageSave:
		return "SAVE"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents a per-file problem reported during a run.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// StageTimings tracks duration for each stage.
type StageTimings struct {
	Discover  time.Duration
	Scan      time.Duration
	Reconcile time.Duration
	Save      time.Duration
}

// CompletionStats contains the final run summary.
type CompletionStats struct {
	// Scan statistics.
	Files       int
	WithClasses int
	Empty       int
	Errors      int
	Timeouts    int
	Classes     int
	SuccessRate float64

	// Reconcile statistics.
	Added        int
	Updated      int
	Conflicts    int
	IndexClasses int
	IndexFiles   int

	Duration time.Duration
	Stages   StageTimings
}

// Renderer defines the interface for progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Root       string // Scan root shown in the summary header
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithRoot sets the scan root displayed in the summary header.
func WithRoot(dir string) ConfigOption {
	return func(c *Config) {
		c.Root = dir
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output: output,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// NewRenderer creates an appropriate renderer based on config and environment.
// It returns a progress bar renderer for interactive terminals, and a plain
// text renderer for CI environments, pipes, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain {
		return NewPlainRenderer(cfg)
	}

	if !IsTTY(cfg.Output) {
		return NewPlainRenderer(cfg)
	}

	if DetectCI() {
		return NewPlainRenderer(cfg)
	}

	return NewBarRenderer(cfg)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

// NopRenderer discards all progress. Used by the watcher and tests.
type NopRenderer struct{}

func (NopRenderer) Start(context.Context) error { return nil }
func (NopRenderer) UpdateProgress(ProgressEvent) {}
func (NopRenderer) AddError(ErrorEvent) {}
func (NopRenderer) Complete(CompletionStats) {}
func (NopRenderer) Stop() error { return nil }
