package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStats() CompletionStats {
	return CompletionStats{
		Files:        12,
		WithClasses:  9,
		Empty:        1,
		Errors:       1,
		Timeouts:     1,
		Classes:      40,
		SuccessRate:  75,
		Added:        30,
		Updated:      4,
		IndexClasses: 38,
		IndexFiles:   9,
		Duration:     2 * time.Second,
	}
}

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: updating progress
	r.UpdateProgress(ProgressEvent{
		Stage:       StageScan,
		Current:     50,
		Total:       100,
		CurrentFile: "addons/vehicles/config.cpp",
	})

	// Then: output is correctly formatted
	assert.Equal(t, "[SCAN] 50/100 - addons/vehicles/config.cpp\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_ZeroTotal(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: updating with zero total (unknown count)
	r.UpdateProgress(ProgressEvent{Stage: StageDiscover, Message: "found 12 files"})

	// Then: shows message without count
	assert.Equal(t, "[FIND] found 12 files\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_NothingToSay(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{Stage: StageSave})

	assert.Empty(t, buf.String())
}

func TestPlainRenderer_AddError(t *testing.T) {
	tests := []struct {
		name  string
		event ErrorEvent
		want  string
	}{
		{
			name:  "error with file",
			event: ErrorEvent{File: "broken.hpp", Err: errors.New("unterminated string at line 3, column 9")},
			want:  "ERROR: broken.hpp: unterminated string at line 3, column 9\n",
		},
		{
			name:  "warning with file",
			event: ErrorEvent{File: "slow.hpp", Err: errors.New("timed out"), IsWarn: true},
			want:  "WARN: slow.hpp: timed out\n",
		},
		{
			name:  "no file",
			event: ErrorEvent{Err: errors.New("index locked")},
			want:  "ERROR: index locked\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewPlainRenderer(NewConfig(buf))

			r.AddError(tt.event)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_Complete(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: completing
	r.Complete(sampleStats())

	// Then: scan and index summaries are shown
	output := buf.String()
	assert.Contains(t, output, "Complete: 12 files, 40 classes in 2s (1 errors, 1 timeouts)")
	assert.Contains(t, output, "With classes: 9 (75.0%)")
	assert.Contains(t, output, "Index: 38 classes across 9 files (30 added, 4 updated)")
	assert.NotContains(t, output, "Conflicts")
	assert.NotContains(t, output, "Stage Breakdown")
}

func TestPlainRenderer_Complete_ConflictsAndStages(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	stats := sampleStats()
	stats.Errors, stats.Timeouts = 0, 0
	stats.Conflicts = 2
	stats.Stages = StageTimings{Discover: time.Millisecond, Scan: 1500 * time.Millisecond}
	r.Complete(stats)

	output := buf.String()
	assert.Contains(t, output, "Complete: 12 files, 40 classes in 2s\n")
	assert.Contains(t, output, "Conflicts:    2")
	assert.Contains(t, output, "Stage Breakdown:")
	assert.Contains(t, output, "Scan:      1.5s")
}

func TestPlainRenderer_NoANSICodes(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: rendering every stage and a summary
	for _, stage := range []Stage{StageDiscover, StageScan, StageReconcile, StageSave, StageComplete} {
		r.UpdateProgress(ProgressEvent{Stage: stage, Current: 1, Total: 2, Message: "working"})
	}
	r.Complete(sampleStats())

	// Then: output contains no ANSI escape codes
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_StartPrintsRoot(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf, WithRoot("/mods/core")))

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())

	assert.Equal(t, "Indexing /mods/core\n", buf.String())
}

func TestPlainRenderer_ThreadSafe(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: concurrent updates
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.UpdateProgress(ProgressEvent{Stage: StageScan, Current: i, Total: 10, CurrentFile: "a.hpp"})
			r.AddError(ErrorEvent{File: "b.hpp", Err: errors.New("bad"), IsWarn: i%2 == 0})
		}()
	}
	wg.Wait()

	// Then: every line is intact
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 20)
}
