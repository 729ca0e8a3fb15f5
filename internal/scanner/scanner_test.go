package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("class A {};"), 0o644))
}

func newScanner(t *testing.T, opts Options) *Scanner {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func TestDiscover_FiltersByExtensionCaseInsensitive(t *testing.T) {
	// Given: a tree with mixed extensions
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config.cpp"))
	writeFile(t, filepath.Join(root, "addons", "Weapons.HPP"))
	writeFile(t, filepath.Join(root, "addons", "readme.txt"))
	writeFile(t, filepath.Join(root, "deep", "er", "vehicle.Cpp"))

	// When: discovering with default extensions
	files, err := newScanner(t, Options{}).Discover(context.Background(), root)

	// Then: only cpp/hpp files are returned, sorted
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "addons", "Weapons.HPP"),
		filepath.Join(root, "config.cpp"),
		filepath.Join(root, "deep", "er", "vehicle.Cpp"),
	}, files)
}

func TestDiscover_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.ext"))
	writeFile(t, filepath.Join(root, "b.cpp"))

	files, err := newScanner(t, Options{Extensions: []string{".EXT"}}).Discover(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.ext")}, files)
}

func TestDiscover_Exclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.cpp"))
	writeFile(t, filepath.Join(root, ".git", "hooks", "x.cpp"))
	writeFile(t, filepath.Join(root, "sub", ".classindex", "y.hpp"))
	writeFile(t, filepath.Join(root, "sub", "backup.hpp"))
	writeFile(t, filepath.Join(root, "sub", "main.hpp"))

	s := newScanner(t, Options{Exclude: []string{"**/.git/**", "**/.classindex/**", "backup.*"}})
	files, err := s.Discover(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "keep.cpp"),
		filepath.Join(root, "sub", "main.hpp"),
	}, files)
}

func TestDiscover_FollowsSymlinks(t *testing.T) {
	// Given: a root that links to a directory and a file outside it
	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")
	writeFile(t, filepath.Join(root, "own.cpp"))
	writeFile(t, filepath.Join(outside, "linked.hpp"))
	writeFile(t, filepath.Join(outside, "single.cpp"))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "single.cpp"), filepath.Join(root, "alias.cpp")))

	// When
	files, err := newScanner(t, Options{}).Discover(context.Background(), root)

	// Then: targets are reached through the link paths
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "alias.cpp"),
		filepath.Join(root, "link", "linked.hpp"),
		filepath.Join(root, "link", "single.cpp"),
		filepath.Join(root, "own.cpp"),
	}, files)
}

func TestDiscover_SymlinkCycleVisitedOnce(t *testing.T) {
	// Given: a directory containing a link back to the root
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "x.cpp"))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "a", "loop")))

	// When
	files, err := newScanner(t, Options{}).Discover(context.Background(), root)

	// Then: the walk terminates and each file appears once
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a", "x.cpp")}, files)
}

func TestDiscover_BrokenSymlinkSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.cpp"))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.cpp"), filepath.Join(root, "dangling.cpp")))

	files, err := newScanner(t, Options{}).Discover(context.Background(), root)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "ok.cpp")}, files)
}

func TestDiscover_EmptyTree(t *testing.T) {
	files, err := newScanner(t, Options{}).Discover(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_InvalidRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.cpp")
	writeFile(t, file)

	tests := []struct {
		name string
		root string
	}{
		{"missing", filepath.Join(dir, "nope")},
		{"not a directory", file},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newScanner(t, Options{}).Discover(context.Background(), tt.root)

			require.Error(t, err)
			assert.Equal(t, cerrors.ErrCodeDirectoryInvalid, cerrors.GetCode(err))
			assert.True(t, cerrors.IsFatal(err))
		})
	}
}

func TestDiscover_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.cpp"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newScanner(t, Options{}).Discover(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Exclude: []string{"[unclosed"}})
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeInvalidInput, cerrors.GetCode(err))

	_, err = New(Options{Extensions: []string{" ", "."}})
	require.Error(t, err)
}

func TestScanner_Accepts(t *testing.T) {
	s := newScanner(t, Options{})

	assert.True(t, s.Accepts("CfgVehicles.hpp"))
	assert.True(t, s.Accepts("/abs/path/config.CPP"))
	assert.False(t, s.Accepts("config.bin"))
	assert.False(t, s.Accepts("hpp"))
}
