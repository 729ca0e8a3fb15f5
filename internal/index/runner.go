// Package index runs the scan pipeline: discovery, concurrent extraction,
// flattening, reconciliation into the class index, and save.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/classindex/internal/classes"
	"github.com/Aman-CERP/classindex/internal/config"
	cerrors "github.com/Aman-CERP/classindex/internal/errors"
	"github.com/Aman-CERP/classindex/internal/extract"
	"github.com/Aman-CERP/classindex/internal/scanner"
	"github.com/Aman-CERP/classindex/internal/store"
	"github.com/Aman-CERP/classindex/internal/ui"
	"github.com/Aman-CERP/classindex/pkg/version"
)

// RunnerConfig configures a single run.
type RunnerConfig struct {
	// RootDir is the tree to discover files in. It also anchors relative
	// index and diagnostics paths from the configuration.
	RootDir string

	// Files, when non-empty, are scanned instead of discovering RootDir.
	Files []string
}

// RunnerResult contains the outcome of a run.
type RunnerResult struct {
	// RunID identifies the run in logs.
	RunID string

	// Scan holds per-file outcomes, records and scan statistics.
	Scan *ScanResult

	// Reconcile holds the index merge statistics.
	Reconcile store.ReconcileStats

	// IndexPath is the saved index document.
	IndexPath string

	// DiagnosticsDir holds parse error and timeout logs.
	DiagnosticsDir string

	Duration time.Duration
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Renderer for progress display (required).
	Renderer ui.Renderer

	// Config is the loaded configuration (required).
	Config *config.Config

	// Extractor overrides the strategy named by Config.Scan.Extractor.
	Extractor extract.Extractor

	// Clock stamps index entries. Defaults to time.Now in UTC.
	Clock func() time.Time
}

// Runner executes runs with progress reporting. One Runner may execute
// several runs; its content hash cache persists between them.
type Runner struct {
	renderer   ui.Renderer
	config     *config.Config
	extractor  extract.Extractor
	reconciler *store.Reconciler
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Renderer == nil {
		return nil, cerrors.ValidationError("renderer is required", nil)
	}
	if deps.Config == nil {
		return nil, cerrors.ValidationError("config is required", nil)
	}

	extractor := deps.Extractor
	if extractor == nil {
		var err error
		extractor, err = extract.ByName(strings.ToLower(deps.Config.Scan.Extractor))
		if err != nil {
			return nil, cerrors.ConfigError(err.Error(), err)
		}
	}

	reconciler, err := store.NewReconciler(store.ReconcilerConfig{
		HashAlgorithm: strings.ToLower(deps.Config.Index.HashAlgorithm),
		CacheSize:     deps.Config.Index.HashCacheSize,
		Clock:         deps.Clock,
	})
	if err != nil {
		return nil, cerrors.ConfigError(err.Error(), err)
	}

	return &Runner{
		renderer:   deps.Renderer,
		config:     deps.Config,
		extractor:  extractor,
		reconciler: reconciler,
	}, nil
}

// stageTiming tracks duration for each stage.
type stageTiming struct {
	discover  time.Duration
	scan      time.Duration
	reconcile time.Duration
	save      time.Duration
}

// Run executes the full pipeline. Per-file failures are reported through
// the renderer and the scan statistics; setup, cancellation and
// persistence failures are returned.
func (r *Runner) Run(ctx context.Context, cfg RunnerConfig) (*RunnerResult, error) {
	startTime := time.Now()
	var timing stageTiming

	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, cerrors.DirectoryError(cfg.RootDir, err)
	}

	runID := uuid.NewString()
	log := slog.With(slog.String("run_id", runID))

	if err := r.renderer.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start renderer: %w", err)
	}
	defer func() {
		if err := r.renderer.Stop(); err != nil {
			log.Warn("failed to stop renderer", slog.String("error", err.Error()))
		}
	}()

	// Stage 1: discover
	discoverStart := time.Now()
	files, err := r.discover(ctx, root, cfg.Files)
	if err != nil {
		return nil, err
	}
	timing.discover = time.Since(discoverStart)
	log.Info("run_discovered", slog.String("root", root), slog.Int("files", len(files)))

	// Stage 2: scan and flatten
	diagDir := config.ResolvePath(root, r.config.Scan.OutputDir)
	diagnostics, err := NewDiagnostics(diagDir, r.config.Scan.VerboseErrors)
	if err != nil {
		return nil, err
	}

	total := len(files)
	if r.config.Scan.MaxFiles > 0 {
		total = min(total, r.config.Scan.MaxFiles)
	}
	var scanned atomic.Int64

	coordinator, err := NewCoordinator(CoordinatorConfig{
		Extractor:    r.extractor,
		Collector:    classes.NewCollector(r.config.Scan.ReducedFidelity),
		Workers:      r.config.Scan.ParallelThreads,
		Timeout:      r.config.ParseTimeout(),
		MaxAbandoned: r.config.Scan.MaxAbandoned,
		MaxFiles:     r.config.Scan.MaxFiles,
		Diagnostics:  diagnostics,
		Digest:       r.reconciler.Digest,
		OnFileScanned: func(path string, o Outcome) {
			n := int(scanned.Add(1))
			r.renderer.UpdateProgress(ui.ProgressEvent{
				Stage:       ui.StageScan,
				Current:     n,
				Total:       total,
				CurrentFile: path,
			})
			r.reportOutcome(path, o)
		},
	})
	if err != nil {
		return nil, err
	}

	scanStart := time.Now()
	scan, err := coordinator.Scan(ctx, files)
	if err != nil {
		return nil, err
	}
	timing.scan = time.Since(scanStart)

	// Stages 3 and 4: reconcile and save under the writer lock
	indexPath := config.ResolvePath(root, r.config.Index.Path)
	st := store.Open(indexPath, version.Short())

	var stats store.ReconcileStats
	var saveStart time.Time
	updateStart := time.Now()
	err = st.Update(ctx, func(ix *store.ClassIndex) error {
		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageReconcile,
			Message: fmt.Sprintf("merging %d records into %d entries", len(scan.Records), ix.Len()),
		})
		reconcileStart := time.Now()
		stats = r.reconciler.ReconcileDigests(ix, scan.Records, scan.Digests)
		timing.reconcile = time.Since(reconcileStart)

		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageSave,
			Message: indexPath,
		})
		saveStart = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if saveStart.IsZero() {
		saveStart = updateStart
	}
	timing.save = time.Since(saveStart)

	duration := time.Since(startTime)
	s := scan.Stats

	r.renderer.Complete(ui.CompletionStats{
		Files:        s.TotalFiles,
		WithClasses:  s.FilesWithClasses,
		Empty:        s.EmptyFiles,
		Errors:       s.ErrorFiles,
		Timeouts:     s.TimeoutFiles,
		Classes:      s.TotalClasses,
		SuccessRate:  s.SuccessRate(),
		Added:        stats.AddedClasses,
		Updated:      stats.UpdatedClasses,
		Conflicts:    stats.Conflicts,
		IndexClasses: stats.TotalClasses,
		IndexFiles:   stats.TotalFiles,
		Duration:     duration,
		Stages: ui.StageTimings{
			Discover:  timing.discover,
			Scan:      timing.scan,
			Reconcile: timing.reconcile,
			Save:      timing.save,
		},
	})

	log.Info("run_complete",
		slog.String("root", root),
		slog.String("index", indexPath),
		slog.Int("files", s.TotalFiles),
		slog.Int("classes", s.TotalClasses),
		slog.Int("added", stats.AddedClasses),
		slog.Int("updated", stats.UpdatedClasses),
		slog.Int64("duration_total_ms", duration.Milliseconds()),
		slog.Int64("duration_discover_ms", timing.discover.Milliseconds()),
		slog.Int64("duration_scan_ms", timing.scan.Milliseconds()),
		slog.Int64("duration_reconcile_ms", timing.reconcile.Milliseconds()),
		slog.Int64("duration_save_ms", timing.save.Milliseconds()))

	return &RunnerResult{
		RunID:          runID,
		Scan:           scan,
		Reconcile:      stats,
		IndexPath:      indexPath,
		DiagnosticsDir: diagDir,
		Duration:       duration,
	}, nil
}

// discover returns explicit files unchanged or walks root.
func (r *Runner) discover(ctx context.Context, root string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageDiscover,
			Message: fmt.Sprintf("scanning %d specific files", len(explicit)),
		})
		return explicit, nil
	}

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageDiscover,
		Message: fmt.Sprintf("searching %s", root),
	})

	sc, err := scanner.New(scanner.Options{
		Extensions: r.config.Scan.Extensions,
		Exclude:    r.config.Scan.Exclude,
	})
	if err != nil {
		return nil, err
	}
	files, err := sc.Discover(ctx, root)
	if err != nil {
		return nil, err
	}

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageDiscover,
		Message: fmt.Sprintf("found %d files", len(files)),
	})
	return files, nil
}

func (r *Runner) reportOutcome(path string, o Outcome) {
	switch o.Kind {
	case OutcomeParseError:
		r.renderer.AddError(ui.ErrorEvent{File: path, Err: errors.New(o.Message)})
	case OutcomeTimeout:
		r.renderer.AddError(ui.ErrorEvent{
			File:   path,
			Err:    fmt.Errorf("timed out after %s", r.config.ParseTimeout()),
			IsWarn: true,
		})
	}
}
