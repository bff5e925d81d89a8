package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/ui"
	"github.com/gomanifold/manifold/internal/docs"
)

// NewDocsCommand creates the docs command
func NewDocsCommand() *cobra.Command {
	var (
		formats []string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Generate reference documentation from the registry",
		Long: `Render the endpoint registry as reference documentation.

Supported formats:
  - markdown: one page, endpoints grouped by resource (endpoints.md)
  - openapi: OpenAPI 3.0 skeleton with paths, methods and path parameters (openapi.json)

Without --output the markdown page is printed to stdout.`,
		Example: `  manifold docs > ENDPOINTS.md
  manifold docs --output docs --format markdown,openapi`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}

			config := &docs.Config{
				ProjectName: a.cfg.ProjectName,
				BaseURL:     a.cfg.API.BaseURL,
				OutputDir:   output,
			}
			for _, f := range formats {
				config.Formats = append(config.Formats, docs.Format(f))
			}

			if output == "" {
				return docs.NewMarkdownGenerator(config).Render(a.out, docs.Extract(reg, config))
			}
			if err := docs.NewGenerator(config).Generate(reg); err != nil {
				return err
			}
			ui.WriteSuccess(a.errOut, fmt.Sprintf("Documentation written to %s", output), a.noColor)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"markdown"}, "Output formats (markdown, openapi)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default: markdown to stdout)")

	return cmd
}
