package docs

import (
	"fmt"

	"github.com/gomanifold/manifold/pkg/registry"
)

// Generator renders a registry in every configured format.
type Generator struct {
	config *Config
}

// NewGenerator creates a generator. No formats means markdown only.
func NewGenerator(config *Config) *Generator {
	if len(config.Formats) == 0 {
		config.Formats = []Format{FormatMarkdown}
	}
	return &Generator{config: config}
}

// Generate extracts reg and writes each format to the output directory.
func (g *Generator) Generate(reg *registry.Registry) error {
	doc := Extract(reg, g.config)

	for _, format := range g.config.Formats {
		var err error
		switch format {
		case FormatMarkdown:
			err = NewMarkdownGenerator(g.config).Generate(doc)
		case FormatOpenAPI:
			err = NewOpenAPIGenerator(g.config).Generate(doc)
		default:
			err = fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
	}
	return nil
}
