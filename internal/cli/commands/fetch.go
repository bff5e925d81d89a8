package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/ui"
	"github.com/gomanifold/manifold/internal/sources"
	"github.com/gomanifold/manifold/internal/tooling/extcmd"
)

// NewFetchCommand creates the fetch command
func NewFetchCommand() *cobra.Command {
	var (
		ref       string
		thenBuild bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Clone or update the documentation sources",
		Long: `Keep a shallow git checkout of sources.repository at sources.checkout.

The first run clones the configured ref; later runs fast-forward it. With a
repository configured, sources.docs and sources.schemas are resolved inside
the checkout.`,
		Example: `  manifold fetch
  manifold fetch --ref stable --build`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if ref == "" {
				ref = a.cfg.Sources.Ref
			}
			fetcher, err := sources.NewGitFetcher(
				a.cfg.Sources.Repository,
				ref,
				a.cfg.Sources.Checkout,
				extcmd.NewRunner(a.logger),
				a.logger,
			)
			if err != nil {
				return err
			}
			if a.cfg.Sources.Timeout > 0 {
				fetcher.Timeout = a.cfg.Sources.Timeout
			}

			var result *sources.Result
			err = ui.WithSpinner(a.errOut, fmt.Sprintf("Fetching %s@%s", fetcher.Repository, fetcher.Ref), a.noColor, func() error {
				var ferr error
				result, ferr = fetcher.Fetch(cmd.Context())
				return ferr
			})
			if err != nil {
				return err
			}

			action := "Updated"
			if result.Cloned {
				action = "Cloned"
			}
			short := result.Revision
			if len(short) > 12 {
				short = short[:12]
			}
			ui.WriteSuccess(a.out, fmt.Sprintf("%s %s at %s", action, result.Dir, short), a.noColor)

			if thenBuild {
				return runBuild(cmd, args)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Branch or tag to check out (default: sources.ref)")
	cmd.Flags().BoolVar(&thenBuild, "build", false, "Build the registry after fetching")

	return cmd
}
