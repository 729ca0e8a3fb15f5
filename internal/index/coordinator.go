package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/classindex/internal/classes"
	cerrors "github.com/Aman-CERP/classindex/internal/errors"
	"github.com/Aman-CERP/classindex/internal/extract"
)

// DefaultParseTimeout is the per-file extraction deadline.
const DefaultParseTimeout = 10 * time.Second

// DefaultWorkers returns one less than the CPU count, never below 1.
func DefaultWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}

// CoordinatorConfig contains configuration for the Coordinator.
type CoordinatorConfig struct {
	// Extractor converts file text into entities (required).
	Extractor extract.Extractor

	// Collector flattens entities. Defaults to full fidelity rendering.
	Collector *classes.Collector

	// Workers bounds concurrent file scans. Zero uses DefaultWorkers.
	Workers int

	// Timeout is the per-file extraction deadline. Zero uses DefaultParseTimeout.
	Timeout time.Duration

	// MaxAbandoned bounds extractions still running after their deadline
	// passed. Zero uses twice the worker count.
	MaxAbandoned int

	// MaxFiles truncates the input list when positive.
	MaxFiles int

	// Diagnostics receives failure reports (optional).
	Diagnostics *Diagnostics

	// Digest hashes the bytes each file was extracted from (optional).
	// The digests are reported in ScanResult.Digests.
	Digest func([]byte) string

	// OnFileScanned is called once per file as soon as its outcome is
	// known. It may be called from several goroutines at once.
	OnFileScanned func(path string, outcome Outcome)
}

// FileResult pairs a path with its outcome and records.
type FileResult struct {
	Path    string
	Outcome Outcome
	Records []classes.ClassRecord

	// Digest is the content hash of the text that produced Records.
	// Empty when no Digest func is configured or the file was unreadable.
	Digest string
}

// ScanResult is the output of one Scan call.
type ScanResult struct {
	// Files holds one result per scanned path, in input order.
	Files []FileResult

	// Records is every flattened record, in input file order.
	Records []classes.ClassRecord

	// Digests maps each path with records to the digest of the scanned text.
	Digests map[string]string

	Stats Statistics
}

// Coordinator fans files out across a bounded worker pool and classifies
// each file's outcome.
type Coordinator struct {
	config CoordinatorConfig
	slots  chan struct{}
}

// NewCoordinator creates a coordinator, filling unset config with defaults.
func NewCoordinator(config CoordinatorConfig) (*Coordinator, error) {
	if config.Extractor == nil {
		return nil, cerrors.ValidationError("extractor is required", nil)
	}
	if config.Workers < 0 || config.MaxAbandoned < 0 || config.MaxFiles < 0 || config.Timeout < 0 {
		return nil, cerrors.ValidationError("scan limits must not be negative", nil)
	}
	if config.Collector == nil {
		config.Collector = classes.NewCollector(false)
	}
	if config.Workers == 0 {
		config.Workers = DefaultWorkers()
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultParseTimeout
	}
	if config.MaxAbandoned == 0 {
		config.MaxAbandoned = 2 * config.Workers
	}

	return &Coordinator{
		config: config,
		// Every running extraction holds a slot until it returns, so
		// abandoned ones keep counting against the bound.
		slots: make(chan struct{}, config.Workers+config.MaxAbandoned),
	}, nil
}

// Workers returns the effective worker count.
func (c *Coordinator) Workers() int {
	return c.config.Workers
}

// Scan extracts every file and aggregates statistics after all workers
// finish. Per-file failures never fail the batch; only cancellation of
// ctx does.
func (c *Coordinator) Scan(ctx context.Context, files []string) (*ScanResult, error) {
	if c.config.MaxFiles > 0 && len(files) > c.config.MaxFiles {
		slog.Debug("limiting files",
			slog.Int("max_files", c.config.MaxFiles),
			slog.Int("discovered", len(files)))
		files = files[:c.config.MaxFiles]
	}

	slog.Info("scan_started",
		slog.Int("files", len(files)),
		slog.Int("workers", c.config.Workers),
		slog.String("extractor", c.config.Extractor.Name()))

	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)

	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := c.scanFile(gctx, path)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = res
			if c.config.OnFileScanned != nil {
				c.config.OnFileScanned(path, res.Outcome)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ScanResult{Files: results, Digests: make(map[string]string)}
	for _, r := range results {
		result.Stats.add(r.Path, r.Outcome)
		result.Records = append(result.Records, r.Records...)
		if r.Digest != "" && len(r.Records) > 0 {
			result.Digests[r.Path] = r.Digest
		}
	}

	if c.config.Diagnostics != nil {
		if err := c.config.Diagnostics.Flush(); err != nil {
			slog.Error("failed to write timeout report", slog.String("error", err.Error()))
		}
	}

	s := result.Stats
	slog.Info("scan_complete",
		slog.Int("total_files", s.TotalFiles),
		slog.Int("files_with_classes", s.FilesWithClasses),
		slog.Int("empty_files", s.EmptyFiles),
		slog.Int("error_files", s.ErrorFiles),
		slog.Int("timeout_files", s.TimeoutFiles),
		slog.Int("total_classes", s.TotalClasses))
	if s.TotalClasses == 0 && s.TotalFiles > 0 {
		slog.Warn("no classes found in any file")
	}

	return result, nil
}

type extractResult struct {
	entities []*extract.Entity
	err      error
}

func (c *Coordinator) scanFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err == nil && !utf8.Valid(data) {
		err = errors.New("content is not valid UTF-8")
	}
	if err != nil {
		rerr := cerrors.ReadError(path, err)
		slog.Warn("failed to read file",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if c.config.Diagnostics != nil {
			c.config.Diagnostics.ParseFailure(path, err, "")
		}
		res.Outcome = Outcome{Kind: OutcomeParseError, Message: rerr.Message + ": " + err.Error()}
		return res
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		res.Outcome = Outcome{Kind: OutcomeEmpty}
		return res
	}
	if c.config.Digest != nil {
		res.Digest = c.config.Digest(data)
	}

	// The deadline also bounds the wait for a slot.
	uctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	select {
	case c.slots <- struct{}{}:
	case <-uctx.Done():
		if ctx.Err() != nil {
			return res
		}
		return c.timedOut(res)
	}

	done := make(chan extractResult, 1)
	go func() {
		defer func() { <-c.slots }()
		done <- c.extract(uctx, text)
	}()

	var out extractResult
	select {
	case out = <-done:
	case <-uctx.Done():
		if ctx.Err() != nil {
			return res
		}
		return c.timedOut(res)
	}

	if out.err != nil {
		if ctx.Err() != nil {
			return res
		}
		if errors.Is(out.err, context.DeadlineExceeded) {
			return c.timedOut(res)
		}
		perr := cerrors.ParseError(path, out.err)
		slog.Warn("failed to parse file",
			slog.String("path", path),
			slog.String("code", perr.Code),
			slog.String("error", out.err.Error()))
		if c.config.Diagnostics != nil {
			c.config.Diagnostics.ParseFailure(path, out.err, text)
		}
		res.Outcome = Outcome{Kind: OutcomeParseError, Message: perr.Message}
		return res
	}

	res.Records = c.config.Collector.Flatten(path, out.entities)
	if len(res.Records) == 0 {
		res.Outcome = Outcome{Kind: OutcomeEmpty}
		return res
	}
	res.Outcome = Outcome{Kind: OutcomeHasClasses, Classes: len(res.Records)}
	return res
}

func (c *Coordinator) timedOut(res FileResult) FileResult {
	terr := cerrors.TimeoutError(res.Path, int(c.config.Timeout/time.Second))
	slog.Warn("parse timed out",
		slog.String("path", res.Path),
		slog.String("timeout", c.config.Timeout.String()),
		slog.String("code", terr.Code))
	if c.config.Diagnostics != nil {
		c.config.Diagnostics.Timeout(res.Path)
	}
	res.Outcome = Outcome{Kind: OutcomeTimeout}
	res.Digest = ""
	return res
}

// extract runs the extractor, turning a panic into an error.
func (c *Coordinator) extract(ctx context.Context, text string) (res extractResult) {
	defer func() {
		if r := recover(); r != nil {
			res = extractResult{err: fmt.Errorf("extractor panicked: %v", r)}
		}
	}()
	entities, err := c.config.Extractor.Extract(ctx, text)
	return extractResult{entities: entities, err: err}
}
