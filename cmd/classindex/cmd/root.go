// Package cmd provides the CLI commands for classindex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classindex/internal/config"
	cerrors "github.com/Aman-CERP/classindex/internal/errors"
	"github.com/Aman-CERP/classindex/internal/logging"
	"github.com/Aman-CERP/classindex/internal/store"
	"github.com/Aman-CERP/classindex/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	debug      bool
	logLevel   string
	noColor    bool
	configPath string

	loggingCleanup func()
}

// NewRootCmd creates the root command for the classindex CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&globalOptions{})
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classindex",
		Short: "Index class definitions in Arma config files",
		Long: `classindex scans a tree of Arma-style config files (.cpp, .hpp),
extracts every class definition including nested ones, and keeps them in
a persistent JSON index keyed by class name.

Run 'classindex scan' in a mod directory, then query the index with
'classindex query', 'classindex show' or 'classindex search'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("classindex version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to stderr and ~/.classindex/logs/")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Project config file (default <root>/.classindex.yaml)")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return opts.startLogging()
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		opts.stopLogging()
		return nil
	}

	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	opts := &globalOptions{}
	root := newRootCmd(opts)
	err := root.Execute()
	// PersistentPostRunE is skipped when RunE fails.
	opts.stopLogging()
	if err != nil {
		_, _ = fmt.Fprint(root.ErrOrStderr(), cerrors.FormatForCLI(err))
	}
	return err
}

// startLogging installs the file logger, adding stderr output in debug mode.
func (o *globalOptions) startLogging() error {
	cfg := logging.DefaultConfig()
	if o.debug {
		cfg = logging.DebugConfig()
	}
	if o.logLevel != "" {
		cfg.Level = o.logLevel
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("logging enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.String("version", version.Short()))
	return nil
}

func (o *globalOptions) stopLogging() {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

// loadConfig loads the layered configuration for root, or the explicit
// --config file when given.
func (o *globalOptions) loadConfig(root string) (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load(root)
}

// indexFlags locates the index for read-only commands.
type indexFlags struct {
	root      string
	indexPath string
}

func (f *indexFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.root, "root", ".", "Scan root the index belongs to")
	cmd.Flags().StringVar(&f.indexPath, "index", "", "Index file (default from config, relative to root)")
}

// loadIndex reads the index selected by f. A missing index loads empty.
func (o *globalOptions) loadIndex(f indexFlags) (*store.ClassIndex, string, error) {
	root, err := absDir(f.root)
	if err != nil {
		return nil, "", err
	}
	path := f.indexPath
	if path == "" {
		cfg, err := o.loadConfig(root)
		if err != nil {
			return nil, "", err
		}
		path = config.ResolvePath(root, cfg.Index.Path)
	}
	ix, err := store.Open(path, version.Short()).Load()
	if err != nil {
		return nil, "", err
	}
	return ix, path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func absDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", cerrors.DirectoryError(dir, err)
	}
	return abs, nil
}
