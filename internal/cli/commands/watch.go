package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/ui"
	"github.com/gomanifold/manifold/internal/tooling/build"
	"github.com/gomanifold/manifold/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the registry whenever the sources change",
		Long: `Build the registry, then watch the documentation file and the schema tree
and rebuild after every batch of changes. Changes arriving within the
debounce window (watch.debounce, 300ms by default) are built together.

Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			system, cleanup, err := a.newBuildSystem(ctx, buildSetup{noCache: noCache})
			if err != nil {
				return err
			}
			defer cleanup()

			rebuilder := watch.NewRebuilder(system, nil, a.logger)
			rebuilder.OnResult = func(files []string, result *build.BuildResult, err error) {
				a.printRebuild(files, result, err)
			}
			return a.watchSources(ctx, rebuilder)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Regenerate every model on each rebuild")

	return cmd
}

// watchSources runs an initial build and then blocks rebuilding on change
// until ctx is done.
func (a *app) watchSources(ctx context.Context, rebuilder *watch.Rebuilder) error {
	if _, err := rebuilder.Rebuild(ctx, nil); err != nil {
		// Keep watching; the next save may fix it.
		a.logger.Warn("initial build failed")
	}

	fmt.Fprint(a.errOut, ui.Info(fmt.Sprintf("Watching %s and %s (Ctrl+C to stop)",
		a.cfg.DocsPath(), a.cfg.SchemasPath()), a.noColor))

	err := rebuilder.Watch(ctx, watch.WatcherOptions{
		Paths:    []string{a.cfg.DocsPath(), a.cfg.SchemasPath()},
		Patterns: []string{"*" + a.cfg.Sources.Extension},
		Ignored:  []string{"*.swp", "*.swo", "*~", "__pycache__"},
		Debounce: a.cfg.Watch.Debounce,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.errOut)
	return nil
}

func (a *app) printRebuild(files []string, result *build.BuildResult, err error) {
	if len(files) > 0 {
		fmt.Fprint(a.out, ui.Info(fmt.Sprintf("%d file(s) changed", len(files)), a.noColor))
	}
	if err != nil {
		fmt.Fprint(a.out, ui.BuildError(err.Error(), nil, a.noColor))
		return
	}
	ui.WriteReport(a.out, result.Report, ui.ReportOptions{
		NoColor: a.noColor,
		Verbose: globals.verbose,
	})
	fmt.Fprintln(a.out)
}
