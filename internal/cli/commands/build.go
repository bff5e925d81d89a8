package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/ui"
	"github.com/gomanifold/manifold/internal/tooling/build"
)

var (
	buildJSON     bool
	buildNoCache  bool
	buildParallel bool
	buildStrict   bool
)

// NewBuildCommand creates the build command
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate validation models and write the endpoint registry",
		Long: `Build the endpoint registry from the API documentation and schema tree.

The build process:
  1. Doc parsing - extract "METHOD /path" headings from the documentation
  2. Correlation - match every schema artifact to a documented endpoint
  3. Generation - run the model generator once per matched artifact
  4. Registry - write the method, module locator and model of every endpoint

Conflicts and generation failures are reported and skipped; the registry is
still written for everything else.`,
		Example: `  # Build with default settings
  manifold build

  # Regenerate every model, ignoring the build cache
  manifold build --no-cache

  # Run the generator concurrently and print the report as JSON
  manifold build --parallel --json

  # Fail (exit 1) when the report contains errors, for CI
  manifold build --strict`,
		RunE: runBuild,
	}

	cmd.Flags().BoolVar(&buildJSON, "json", false, "Print the build report as JSON")
	cmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "Regenerate every model")
	cmd.Flags().BoolVarP(&buildParallel, "parallel", "p", false, "Run the generator concurrently")
	cmd.Flags().BoolVar(&buildStrict, "strict", false, "Exit non-zero when the report has errors")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	setup := buildSetup{noCache: buildNoCache, parallel: buildParallel}
	var bar *ui.ProgressBar
	if !buildJSON {
		bar = ui.NewProgressBar(a.errOut, ui.ProgressBarOptions{NoColor: a.noColor})
		setup.progress = bar.Update
	}

	system, cleanup, err := a.newBuildSystem(cmd.Context(), setup)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := system.Build(cmd.Context())
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if !buildJSON {
			fmt.Fprint(a.errOut, ui.BuildError(err.Error(), nil, a.noColor))
			return errReported
		}
		return err
	}

	if buildJSON {
		if err := writeReportJSON(a, result.Report); err != nil {
			return err
		}
	} else {
		ui.WriteReport(a.out, result.Report, ui.ReportOptions{
			NoColor: a.noColor,
			Verbose: globals.verbose,
		})
	}

	if buildStrict && result.Report.HasErrors() {
		return errReported
	}
	return nil
}

func writeReportJSON(a *app, report *build.Report) error {
	data, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(a.out, data)
	return nil
}
