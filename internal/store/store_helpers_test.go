package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/classindex/internal/classes"
)

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newReconciler(t *testing.T, algorithm string) *Reconciler {
	t.Helper()
	r, err := NewReconciler(ReconcilerConfig{HashAlgorithm: algorithm, Clock: stepClock()})
	require.NoError(t, err)
	return r
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func record(name, parent, file string, props ...classes.Property) classes.ClassRecord {
	return classes.ClassRecord{Name: name, Parent: parent, Properties: props, SourceFile: file}
}

func emptyIndex() *ClassIndex {
	return NewClassIndex("test", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}
