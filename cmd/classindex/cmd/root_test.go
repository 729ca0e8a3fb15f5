package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/classindex/internal/logging"
)

// isolateEnv points HOME and the user config at a temp dir and clears
// CLASSINDEX_* overrides.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{
		"CLASSINDEX_THREADS", "CLASSINDEX_TIMEOUT", "CLASSINDEX_MAX_FILES",
		"CLASSINDEX_VERBOSE_ERRORS", "CLASSINDEX_EXTRACTOR", "CLASSINDEX_OUTPUT_DIR",
		"CLASSINDEX_INDEX_PATH", "CLASSINDEX_HASH", "CLASSINDEX_LOG_LEVEL",
		"NO_COLOR", "CI",
	} {
		t.Setenv(key, "")
	}
	return home
}

// executeCommand runs the root command with args and returns combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &globalOptions{}
	cmd := newRootCmd(opts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	opts.stopLogging()
	return buf.String(), err
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// soldierTree writes a base soldier with a nested class and a derived soldier.
func soldierTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
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

// scannedTree returns a soldier tree that has already been indexed.
func scannedTree(t *testing.T) string {
	t.Helper()
	root := soldierTree(t)
	_, err := executeCommand(t, "scan", root, "--threads", "2")
	require.NoError(t, err)
	return root
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	for _, name := range []string{"scan", "query", "show", "stats", "search", "export", "watch", "config", "version"} {
		t.Run(name, func(t *testing.T) {
			// When: looking the subcommand up
			sub, _, err := root.Find([]string{name})

			// Then: it exists
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// Then: the global flags are persistent
	for _, name := range []string{"debug", "log-level", "no-color", "config"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmd_WritesLogFileUnderHome(t *testing.T) {
	// Given: an isolated home
	home := isolateEnv(t)

	// When: running any command
	_, err := executeCommand(t, "version", "--short")
	require.NoError(t, err)

	// Then: the rotating log file lives under the home directory
	assert.Equal(t, filepath.Join(home, ".classindex", "logs", "classindex.log"), logging.DefaultLogPath())
	assert.FileExists(t, logging.DefaultLogPath())
}

func TestRootCmd_InvalidLogLevelFallsBack(t *testing.T) {
	// Given: an isolated home
	isolateEnv(t)

	// When: running with an unknown log level
	_, err := executeCommand(t, "--log-level", "verbose", "version")

	// Then: logging still starts
	assert.NoError(t, err)
}

func TestRootCmd_ExplicitConfigMustExist(t *testing.T) {
	// Given: an isolated home
	isolateEnv(t)

	// When: pointing --config at a missing file
	_, err := executeCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "config", "show")

	// Then: the command fails with a config error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}
