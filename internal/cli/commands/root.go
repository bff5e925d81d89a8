package commands

import (
	stderrors "errors"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/ui"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
	jsonLogs   bool
	noColor    bool
}

var globals globalFlags

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "manifold",
		Short: "Endpoint registry toolchain for the Manifold Markets API",
		Long: color.CyanString(`manifold - endpoint registry toolchain for the Manifold Markets API

manifold reads the API documentation and the JSON schema tree, generates a
validation model per endpoint and writes an endpoint registry. The registry
drives request resolution, validation and dispatch at runtime.

Typical workflow:
  manifold fetch       # clone or update the documentation sources
  manifold build       # parse, correlate, generate and write endpoints.json
  manifold endpoints   # list what was registered
  manifold call /bet --body '{"contractId":"x","amount":10,"outcome":"YES"}'`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if globals.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globals.configPath, "config", "c", "", "Config file (default: ./manifold.yml)")
	flags.BoolVarP(&globals.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&globals.jsonLogs, "log-json", false, "Write logs as JSON lines")
	flags.BoolVar(&globals.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewFetchCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewEndpointsCommand())
	rootCmd.AddCommand(NewResolveCommand())
	rootCmd.AddCommand(NewCallCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewDocsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the manifold version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "manifold version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command and renders the returned error.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		renderError(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

// errReported marks an error whose details were already printed by the
// command; Execute only sets the exit status for it.
var errReported = stderrors.New("reported")

func renderError(w io.Writer, err error) {
	if stderrors.Is(err, errReported) {
		return
	}
	noColor := globals.noColor || color.NoColor

	var mfErr *mferrors.Error
	switch {
	case stderrors.As(err, &mfErr) && mfErr.Kind == mferrors.KindUnresolvedEndpoint:
		fmt.Fprint(w, ui.EndpointNotFoundError(mfErr.Endpoint, mfErr.Suggestions, noColor))
	case stderrors.As(err, &mfErr) && mfErr.Kind == mferrors.KindConfiguration:
		fmt.Fprint(w, ui.ConfigError(mfErr.Message, nil, noColor))
	case stderrors.As(err, &mfErr):
		fmt.Fprint(w, ui.FormatIssue(mfErr, noColor))
	default:
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(w, "Error: %v\n", err)
	}
}
