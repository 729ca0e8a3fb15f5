package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cerrors "github.com/Aman-CERP/classindex/internal/errors"
	"github.com/Aman-CERP/classindex/internal/index"
	"github.com/Aman-CERP/classindex/internal/output"
	"github.com/Aman-CERP/classindex/internal/ui"
	"github.com/Aman-CERP/classindex/internal/watcher"
)

type watchOptions struct {
	noInitial bool
	plain     bool
}

func newWatchCmd(g *globalOptions) *cobra.Command {
	o := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Rescan files as they change",
		Long: `Watch runs a full scan of root, then watches the tree and rescans
created or modified files after a short debounce (watch.debounce).

Deleted files are reported but their classes stay in the index; run a
fresh scan into a new index to drop them.`,
		Example: `  classindex watch ./addons
  classindex watch --no-initial`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, g, o, args)
		},
	}

	cmd.Flags().BoolVar(&o.noInitial, "no-initial", false, "Skip the initial full scan")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "Plain text progress even on a terminal")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, g *globalOptions, o *watchOptions, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	root, err := absDir(root)
	if err != nil {
		return err
	}
	cfg, err := g.loadConfig(root)
	if err != nil {
		return err
	}
	out := output.NewStyled(cmd.OutOrStdout(), g.noColor)

	if !o.noInitial {
		initial, err := index.NewRunner(index.RunnerDependencies{
			Renderer: ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
				ui.WithForcePlain(o.plain),
				ui.WithNoColor(g.noColor || ui.DetectNoColor()),
				ui.WithRoot(root),
			)),
			Config: cfg,
		})
		if err != nil {
			return err
		}
		if _, err := initial.Run(ctx, index.RunnerConfig{RootDir: root}); err != nil {
			return err
		}
	}

	// Batches report a single summary line instead of full progress.
	runner, err := index.NewRunner(index.RunnerDependencies{
		Renderer: ui.NopRenderer{},
		Config:   cfg,
	})
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.Options{
		DebounceWindow: cfg.DebounceWindow(),
		Extensions:     cfg.Scan.Extensions,
		Exclude:        cfg.Scan.Exclude,
	})
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, root) }()

	select {
	case <-w.Ready():
	case err := <-done:
		return cerrors.DirectoryError(root, err)
	}
	out.Successf("Watching %s (Ctrl+C to stop)", root)

	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			<-done
			out.Status("", "watch stopped")
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))
			out.Warningf("watcher: %v", err)

		case batch, ok := <-w.Events():
			if !ok {
				out.Status("", "watch stopped")
				if err := <-done; ctx.Err() == nil {
					return err
				}
				return nil
			}
			if err := rescanBatch(ctx, runner, out, root, batch); err != nil {
				_ = w.Stop()
				<-done
				return err
			}
		}
	}
}

// rescanBatch rescans the changed files of batch. Only fatal errors are returned.
func rescanBatch(ctx context.Context, runner *index.Runner, out *output.Writer, root string, batch []watcher.FileEvent) error {
	changed, deleted := watcher.Split(batch)
	for _, path := range deleted {
		slog.Info("watch_file_deleted", slog.String("path", path))
		out.Dim("deleted " + path + " (classes kept in index)")
	}
	if len(changed) == 0 {
		return nil
	}

	result, err := runner.Run(ctx, index.RunnerConfig{RootDir: root, Files: changed})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil
	case cerrors.IsFatal(err):
		return err
	default:
		out.Errorf("rescan failed: %v", err)
		return nil
	}

	s := result.Scan.Stats
	out.Statusf("~", "rescanned %d files: %d added, %d updated, %d errors, %d timeouts",
		s.TotalFiles, result.Reconcile.AddedClasses, result.Reconcile.UpdatedClasses, s.ErrorFiles, s.TimeoutFiles)
	return nil
}
