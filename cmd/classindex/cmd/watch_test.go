package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/classindex/internal/config"
	"github.com/Aman-CERP/classindex/internal/index"
	"github.com/Aman-CERP/classindex/internal/output"
	"github.com/Aman-CERP/classindex/internal/store"
	"github.com/Aman-CERP/classindex/internal/ui"
	"github.com/Aman-CERP/classindex/internal/watcher"
)

func newBatchRunner(t *testing.T) *index.Runner {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Scan.ParallelThreads = 2
	r, err := index.NewRunner(index.RunnerDependencies{Renderer: ui.NopRenderer{}, Config: cfg})
	require.NoError(t, err)
	return r
}

func TestRescanBatch_ChangedFiles(t *testing.T) {
	// Given: a soldier tree and a batch with one modified file
	isolateEnv(t)
	root := soldierTree(t)
	file := filepath.Join(root, "units", "blufor.hpp")
	batch := []watcher.FileEvent{{Path: file, Operation: watcher.OpModify, Timestamp: time.Now()}}
	buf := &bytes.Buffer{}

	// When: rescanning the batch
	err := rescanBatch(context.Background(), newBatchRunner(t), output.New(buf), root, batch)

	// Then: only that file is indexed and a summary is printed
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "~ rescanned 1 files: 1 added, 0 updated, 0 errors, 0 timeouts")
	ix, err := store.Open(filepath.Join(root, ".classindex", "index.json"), "test").Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"B_Soldier_F"}, ix.Names())
}

func TestRescanBatch_DeletesAreReportedOnly(t *testing.T) {
	// Given: a scanned tree and a batch with only a delete
	isolateEnv(t)
	root := scannedTree(t)
	file := filepath.Join(root, "units", "blufor.hpp")
	batch := []watcher.FileEvent{{Path: file, Operation: watcher.OpDelete}}
	buf := &bytes.Buffer{}

	// When: handling the batch
	err := rescanBatch(context.Background(), newBatchRunner(t), output.New(buf), root, batch)

	// Then: the delete is reported and the class stays indexed
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "deleted "+file)
	assert.NotContains(t, buf.String(), "rescanned")
	ix, err := store.Open(filepath.Join(root, ".classindex", "index.json"), "test").Load()
	require.NoError(t, err)
	_, ok := ix.Get("B_Soldier_F")
	assert.True(t, ok)
}

func TestRescanBatch_CancelledContextIsNotAnError(t *testing.T) {
	// Given: a cancelled context and a changed file
	isolateEnv(t)
	root := soldierTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch := []watcher.FileEvent{{Path: filepath.Join(root, "units", "base.hpp"), Operation: watcher.OpCreate}}

	// When: rescanning
	err := rescanBatch(ctx, newBatchRunner(t), output.New(&bytes.Buffer{}), root, batch)

	// Then: shutdown is quiet
	assert.NoError(t, err)
}

func TestWatchCmd_StopsOnCancel(t *testing.T) {
	// Given: a soldier tree and a context cancelled shortly after start
	isolateEnv(t)
	root := soldierTree(t)
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	opts := &globalOptions{}
	cmd := newRootCmd(opts)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"watch", root})

	// When: running watch until the context ends
	err := cmd.ExecuteContext(ctx)
	opts.stopLogging()

	// Then: the initial scan ran and watch exited cleanly
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Complete: 2 files, 3 classes")
	assert.Contains(t, buf.String(), "Watching "+root)
	assert.Contains(t, buf.String(), "watch stopped")
	assert.FileExists(t, filepath.Join(root, ".classindex", "index.json"))
}
