package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/classindex/internal/config"
	cerrors "github.com/Aman-CERP/classindex/internal/errors"
	"github.com/Aman-CERP/classindex/internal/extract"
	"github.com/Aman-CERP/classindex/internal/store"
	"github.com/Aman-CERP/classindex/internal/ui"
)

// recordingRenderer implements ui.Renderer for testing. Progress arrives
// from scan workers, so every field is guarded.
type recordingRenderer struct {
	mu             sync.Mutex
	started        bool
	stopped        bool
	progressEvents []ui.ProgressEvent
	errorEvents    []ui.ErrorEvent
	completion     *ui.CompletionStats
}

func (m *recordingRenderer) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

func (m *recordingRenderer) UpdateProgress(event ui.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressEvents = append(m.progressEvents, event)
}

func (m *recordingRenderer) AddError(event ui.ErrorEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorEvents = append(m.errorEvents, event)
}

func (m *recordingRenderer) Complete(stats ui.CompletionStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completion = &stats
}

func (m *recordingRenderer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *recordingRenderer) stages() map[ui.Stage]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[ui.Stage]int)
	for _, e := range m.progressEvents {
		seen[e.Stage]++
	}
	return seen
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Scan.ParallelThreads = 2
	return cfg
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func newRunner(t *testing.T, cfg *config.Config, r ui.Renderer) *Runner {
	t.Helper()
	runner, err := NewRunner(RunnerDependencies{Renderer: r, Config: cfg, Clock: fixedClock()})
	require.NoError(t, err)
	return runner
}

// soldierTree writes the two-file soldier hierarchy under a fresh root.
func soldierTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "units"), 0o755))
	writeFixture(t, root, "units/base.hpp", `
class Soldier_Base_F {
	scope = 1;
	class Inventory {
		items = 3;
	};
};
`)
	writeFixture(t, root, "units/blufor.hpp", `class B_Soldier_F : Soldier_Base_F { displayName = "Rifleman"; };`)
	writeFixture(t, root, "README.txt", "class Ignored {};")
	return root
}

func TestRunner_Run_DiscoversScansAndSaves(t *testing.T) {
	// Given: a tree with a base soldier and a derived soldier in separate files
	root := soldierTree(t)
	rec := &recordingRenderer{}

	// When: running the pipeline
	result, err := newRunner(t, testConfig(), rec).Run(context.Background(), RunnerConfig{RootDir: root})
	require.NoError(t, err)

	// Then: both files were scanned and three records collected
	stats := result.Scan.Stats
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 2, stats.FilesWithClasses)
	assert.Equal(t, 3, stats.TotalClasses)
	assert.True(t, stats.Consistent())
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, 3, result.Reconcile.AddedClasses)
	assert.Equal(t, 3, result.Reconcile.TotalClasses)
	assert.Equal(t, 2, result.Reconcile.TotalFiles)

	// Then: the saved index carries the raw parent
	assert.Equal(t, filepath.Join(root, ".classindex", "index.json"), result.IndexPath)
	ix, err := store.Open(result.IndexPath, "test").Load()
	require.NoError(t, err)
	entry, ok := ix.Get("B_Soldier_F")
	require.True(t, ok)
	assert.Equal(t, "Soldier_Base_F", entry.Class.Parent)
	_, ok = ix.Get("Inventory")
	assert.True(t, ok, "nested class is indexed as its own entry")
	assert.Len(t, ix.ClassesInFile(filepath.Join(root, "units", "base.hpp")), 2)

	// Then: every stage was reported and the renderer was closed
	seen := rec.stages()
	assert.Positive(t, seen[ui.StageDiscover])
	assert.Equal(t, 2, seen[ui.StageScan])
	assert.Equal(t, 1, seen[ui.StageReconcile])
	assert.Equal(t, 1, seen[ui.StageSave])
	assert.True(t, rec.started)
	assert.True(t, rec.stopped)
	require.NotNil(t, rec.completion)
	assert.Equal(t, 2, rec.completion.Files)
	assert.Equal(t, 3, rec.completion.Added)
	assert.InDelta(t, 100.0, rec.completion.SuccessRate, 0.001)
	assert.Empty(t, rec.errorEvents)
}

func TestRunner_Run_SecondPassIsIdempotent(t *testing.T) {
	// Given: a tree that has already been indexed
	root := soldierTree(t)
	runner := newRunner(t, testConfig(), ui.NopRenderer{})
	_, err := runner.Run(context.Background(), RunnerConfig{RootDir: root})
	require.NoError(t, err)

	// When: running again without changes
	result, err := runner.Run(context.Background(), RunnerConfig{RootDir: root})
	require.NoError(t, err)

	// Then: nothing is added or updated
	assert.Zero(t, result.Reconcile.AddedClasses)
	assert.Zero(t, result.Reconcile.UpdatedClasses)
	assert.Equal(t, 3, result.Reconcile.TotalClasses)
}

func TestRunner_Run_ChangedFileUpdatesItsClasses(t *testing.T) {
	// Given: an indexed tree
	root := soldierTree(t)
	runner := newRunner(t, testConfig(), ui.NopRenderer{})
	_, err := runner.Run(context.Background(), RunnerConfig{RootDir: root})
	require.NoError(t, err)

	// When: one file changes and only that file is rescanned
	changed := writeFixture(t, root, "units/blufor.hpp", `class B_Soldier_F : Soldier_Base_F { displayName = "Grenadier"; };`)
	result, err := runner.Run(context.Background(), RunnerConfig{RootDir: root, Files: []string{changed}})
	require.NoError(t, err)

	// Then: the class from that file is updated and the others are kept
	assert.Equal(t, 1, result.Scan.Stats.TotalFiles)
	assert.Equal(t, 1, result.Reconcile.UpdatedClasses)
	assert.Equal(t, 3, result.Reconcile.TotalClasses)

	ix, err := store.Open(result.IndexPath, "test").Load()
	require.NoError(t, err)
	entry, _ := ix.Get("B_Soldier_F")
	value, _ := entry.Class.Property("displayName")
	assert.Equal(t, "Grenadier", value)
}

func TestRunner_Run_ReportsParseErrors(t *testing.T) {
	// Given: a tree with one malformed file
	root := t.TempDir()
	writeFixture(t, root, "good.cpp", "class Good {};")
	broken := writeFixture(t, root, "broken.cpp", "class Broken {")
	writeFixture(t, root, "empty.cpp", "")
	rec := &recordingRenderer{}

	// When: running
	result, err := newRunner(t, testConfig(), rec).Run(context.Background(), RunnerConfig{RootDir: root})
	require.NoError(t, err)

	// Then: the batch succeeds and the failure is reported and logged
	stats := result.Scan.Stats
	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, 1, stats.ErrorFiles)
	assert.Equal(t, 1, stats.EmptyFiles)
	assert.Equal(t, []string{broken}, stats.ErrorPaths)

	require.Len(t, rec.errorEvents, 1)
	assert.Equal(t, broken, rec.errorEvents[0].File)
	assert.False(t, rec.errorEvents[0].IsWarn)

	assert.FileExists(t, filepath.Join(result.DiagnosticsDir, ParseErrorLogName(broken)))
	assert.NoFileExists(t, filepath.Join(result.DiagnosticsDir, TimeoutLogName))
}

func TestRunner_Run_MaxFilesCapsProgressTotal(t *testing.T) {
	// Given: five files and a cap of two
	root := t.TempDir()
	for _, name := range []string{"a.hpp", "b.hpp", "c.hpp", "d.hpp", "e.hpp"} {
		writeFixture(t, root, name, "class X_"+name[:1]+" {};")
	}
	cfg := testConfig()
	cfg.Scan.MaxFiles = 2
	rec := &recordingRenderer{}

	// When: running
	result, err := newRunner(t, cfg, rec).Run(context.Background(), RunnerConfig{RootDir: root})
	require.NoError(t, err)

	// Then: only the first two files in discovery order are scanned
	assert.Equal(t, 2, result.Scan.Stats.TotalFiles)
	assert.Equal(t, 2, result.Reconcile.TotalClasses)
	for _, e := range rec.progressEvents {
		if e.Stage == ui.StageScan {
			assert.Equal(t, 2, e.Total)
		}
	}
}

func TestRunner_Run_PatternExtractor(t *testing.T) {
	// Given: the pattern strategy selected in config
	root := soldierTree(t)
	cfg := testConfig()
	cfg.Scan.Extractor = config.ExtractorPattern

	// When: running
	result, err := newRunner(t, cfg, ui.NopRenderer{}).Run(context.Background(), RunnerConfig{RootDir: root})
	require.NoError(t, err)

	// Then: names and parents are found at every depth without properties
	assert.Equal(t, 3, result.Scan.Stats.TotalClasses)
	ix, err := store.Open(result.IndexPath, "test").Load()
	require.NoError(t, err)
	entry, ok := ix.Get("B_Soldier_F")
	require.True(t, ok)
	assert.Equal(t, "Soldier_Base_F", entry.Class.Parent)
	assert.Empty(t, entry.Class.Properties)
}

func TestRunner_Run_InvalidRoot(t *testing.T) {
	// Given: a root that does not exist
	root := filepath.Join(t.TempDir(), "missing")

	// When: running
	_, err := newRunner(t, testConfig(), ui.NopRenderer{}).Run(context.Background(), RunnerConfig{RootDir: root})

	// Then: the failure is a fatal directory error
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeDirectoryInvalid, cerrors.GetCode(err))
	assert.True(t, cerrors.IsFatal(err))
}

func TestRunner_Run_CancelledContext(t *testing.T) {
	root := soldierTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, testConfig(), ui.NopRenderer{}).Run(ctx, RunnerConfig{RootDir: root})

	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, ".classindex", "index.json"))
}

func TestNewRunner_Validation(t *testing.T) {
	unknownExtractor := testConfig()
	unknownExtractor.Scan.Extractor = "regex"
	unknownHash := testConfig()
	unknownHash.Index.HashAlgorithm = "md5"

	tests := []struct {
		name string
		deps RunnerDependencies
		code string
	}{
		{"missing renderer", RunnerDependencies{Config: testConfig()}, cerrors.ErrCodeInvalidInput},
		{"missing config", RunnerDependencies{Renderer: ui.NopRenderer{}}, cerrors.ErrCodeInvalidInput},
		{"unknown extractor", RunnerDependencies{Renderer: ui.NopRenderer{}, Config: unknownExtractor}, cerrors.ErrCodeConfigInvalid},
		{"unknown hash", RunnerDependencies{Renderer: ui.NopRenderer{}, Config: unknownHash}, cerrors.ErrCodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(tt.deps)
			require.Error(t, err)
			assert.Equal(t, tt.code, cerrors.GetCode(err))
		})
	}
}

func TestScanThenReconcile_EditAfterScanIsPickedUpNextPass(t *testing.T) {
	// Given: a file scanned with the reconciler's digest
	dir := t.TempDir()
	path := filepath.Join(dir, "a.hpp")
	require.NoError(t, os.WriteFile(path, []byte("class A { v = 1; };"), 0o644))

	reconciler, err := store.NewReconciler(store.ReconcilerConfig{})
	require.NoError(t, err)
	c, err := NewCoordinator(CoordinatorConfig{Extractor: extract.NewParser(), Digest: reconciler.Digest})
	require.NoError(t, err)
	ix := store.NewClassIndex("test", time.Now().UTC())

	first, err := c.Scan(context.Background(), []string{path})
	require.NoError(t, err)

	// When: the file is saved again before the records are reconciled
	require.NoError(t, os.WriteFile(path, []byte("class A { v = 2; };"), 0o644))
	reconciler.ReconcileDigests(ix, first.Records, first.Digests)

	second, err := c.Scan(context.Background(), []string{path})
	require.NoError(t, err)
	stats := reconciler.ReconcileDigests(ix, second.Records, second.Digests)

	// Then: the second pass sees the new content and updates the entry
	assert.Equal(t, 1, stats.UpdatedClasses)
	entry, ok := ix.Get("A")
	require.True(t, ok)
	v, _ := entry.Class.Property("v")
	assert.Equal(t, "2", v)
}
