package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Aman-CERP/classindex/internal/config"
	cerrors "github.com/Aman-CERP/classindex/internal/errors"
	"github.com/Aman-CERP/classindex/internal/index"
	"github.com/Aman-CERP/classindex/internal/output"
	"github.com/Aman-CERP/classindex/internal/ui"
)

// scanOptions holds scan flags. Only flags set on the command line
// override the loaded configuration.
type scanOptions struct {
	files           []string
	maxFiles        int
	timeout         int
	threads         int
	verboseErrors   bool
	outputDir       string
	indexPath       string
	extractor       string
	hash            string
	reducedFidelity bool
	plain           bool
}

func newScanCmd(g *globalOptions) *cobra.Command {
	o := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [root] [files...]",
		Short: "Scan config files and update the class index",
		Long: `Scan discovers .cpp and .hpp files under root (default: current directory),
extracts every class definition, and merges the records into the index.

Classes are keyed by name. A class whose file content hash is unchanged is
left untouched, so rescanning an unchanged tree is a no-op.

When files are given, only those files are scanned; the index and
diagnostics locations still resolve against root.`,
		Example: `  # Scan the current directory
  classindex scan

  # Scan a mod with 8 workers and a 5 second per-file timeout
  classindex scan ./addons --threads 8 --timeout 5

  # Rescan two files only
  classindex scan ./addons ./addons/units/config.cpp ./addons/units/base.hpp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScan(ctx, cmd, g, o, args)
		},
	}

	cmd.Flags().StringSliceVar(&o.files, "files", nil, "Scan only these files")
	cmd.Flags().IntVar(&o.maxFiles, "max-files", 0, "Scan at most this many files (0 = all)")
	cmd.Flags().IntVar(&o.timeout, "timeout", 0, "Per-file parse timeout in seconds")
	cmd.Flags().IntVar(&o.threads, "threads", 0, "Worker count (0 = logical cores minus one)")
	cmd.Flags().BoolVar(&o.verboseErrors, "verbose-errors", false, "Write file content and location into parse error logs")
	cmd.Flags().StringVar(&o.outputDir, "output-dir", "", "Diagnostics directory")
	cmd.Flags().StringVar(&o.indexPath, "index", "", "Index file")
	cmd.Flags().StringVar(&o.extractor, "extractor", "", "Extractor: parser or pattern")
	cmd.Flags().StringVar(&o.hash, "hash", "", "Content hash: sha256 or xxh3")
	cmd.Flags().BoolVar(&o.reducedFidelity, "reduced-fidelity", false, "Render array properties as [array]")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "Plain text progress even on a terminal")

	return cmd
}

// apply copies changed flags onto cfg and revalidates it.
func (o *scanOptions) apply(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("max-files") {
		cfg.Scan.MaxFiles = o.maxFiles
	}
	if flags.Changed("timeout") {
		cfg.Scan.ParseTimeoutSeconds = o.timeout
	}
	if flags.Changed("threads") {
		cfg.Scan.ParallelThreads = o.threads
	}
	if flags.Changed("verbose-errors") {
		cfg.Scan.VerboseErrors = o.verboseErrors
	}
	if flags.Changed("output-dir") {
		cfg.Scan.OutputDir = o.outputDir
	}
	if flags.Changed("index") {
		cfg.Index.Path = o.indexPath
	}
	if flags.Changed("extractor") {
		cfg.Scan.Extractor = o.extractor
	}
	if flags.Changed("hash") {
		cfg.Index.HashAlgorithm = o.hash
	}
	if flags.Changed("reduced-fidelity") {
		cfg.Scan.ReducedFidelity = o.reducedFidelity
	}
	return cfg.Validate()
}

func runScan(ctx context.Context, cmd *cobra.Command, g *globalOptions, o *scanOptions, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := absDir(root)
	if err != nil {
		return err
	}

	files, err := explicitFiles(append(append([]string(nil), o.files...), args[min(len(args), 1):]...))
	if err != nil {
		return err
	}

	cfg, err := g.loadConfig(root)
	if err != nil {
		return err
	}
	if err := o.apply(cmd.Flags(), cfg); err != nil {
		return err
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(o.plain),
		ui.WithNoColor(g.noColor || ui.DetectNoColor()),
		ui.WithRoot(root),
	))

	runner, err := index.NewRunner(index.RunnerDependencies{
		Renderer: renderer,
		Config:   cfg,
	})
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, index.RunnerConfig{RootDir: root, Files: files})
	if err != nil {
		return err
	}

	out := output.NewStyled(cmd.OutOrStdout(), g.noColor)
	stats := result.Scan.Stats
	if failed := stats.ErrorFiles + stats.TimeoutFiles; failed > 0 {
		out.Warningf("%d files could not be indexed, details in %s", failed, result.DiagnosticsDir)
	}
	out.Successf("Index saved to %s", result.IndexPath)
	return nil
}

// explicitFiles makes paths absolute so they match discovered paths in the index.
func explicitFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, cerrors.ValidationError("invalid file path: "+p, err)
		}
		files = append(files, abs)
	}
	return files, nil
}
