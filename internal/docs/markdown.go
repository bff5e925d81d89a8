package docs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MarkdownGenerator generates Markdown documentation
type MarkdownGenerator struct {
	config *Config
}

// NewMarkdownGenerator creates a new Markdown generator
func NewMarkdownGenerator(config *Config) *MarkdownGenerator {
	return &MarkdownGenerator{
		config: config,
	}
}

// Generate writes endpoints.md to the output directory.
func (g *MarkdownGenerator) Generate(doc *Documentation) error {
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(g.config.OutputDir, "endpoints.md"))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := g.Render(f, doc); err != nil {
		return err
	}
	return f.Close()
}

// Render writes the reference page to w.
func (g *MarkdownGenerator) Render(w io.Writer, doc *Documentation) error {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("# %s API endpoint reference\n\n", doc.Title))
	buf.WriteString(fmt.Sprintf("%d endpoints, %d with a validation model.\n\n", doc.Total, doc.WithModel))
	if doc.BaseURL != "" {
		buf.WriteString("## Base URL\n\n")
		buf.WriteString(fmt.Sprintf("```\n%s\n```\n\n", doc.BaseURL))
	}

	if len(doc.Groups) == 0 {
		buf.WriteString("No endpoints registered.\n")
		_, err := io.WriteString(w, buf.String())
		return err
	}

	// Table of contents
	buf.WriteString("## Contents\n\n")
	for _, group := range doc.Groups {
		buf.WriteString(fmt.Sprintf("- [%s](#%s) (%d)\n", group.Name, anchor(group.Name), len(group.Endpoints)))
	}
	buf.WriteString("\n")

	for _, group := range doc.Groups {
		buf.WriteString(fmt.Sprintf("## %s\n\n", group.Name))
		buf.WriteString("| Method | Endpoint | Model | Schema |\n")
		buf.WriteString("|--------|----------|-------|--------|\n")
		for _, e := range group.Endpoints {
			model, schema := "-", "-"
			if e.HasModel() {
				model = fmt.Sprintf("`%s.%s`", e.Module, e.Model)
				if e.Schema != "" {
					schema = fmt.Sprintf("`%s`", e.Schema)
				}
			}
			buf.WriteString(fmt.Sprintf("| %s | `%s` | %s | %s |\n", e.Method, e.Path, model, schema))
		}
		buf.WriteString("\n")
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// anchor mirrors how markdown renderers derive heading ids.
func anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
