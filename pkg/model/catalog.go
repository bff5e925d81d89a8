package model

import (
	"io/fs"
	"sort"

	"go.uber.org/zap"

	"github.com/gomanifold/manifold/pkg/registry"
)

// Catalog holds one descriptor per model identifier named in a registry.
// It is immutable once built and safe for concurrent use.
type Catalog struct {
	descriptors map[string]Descriptor
	missing     []string
}

type catalogOptions struct {
	table    *Table
	schemaFS fs.FS
	logger   *zap.Logger
}

// CatalogOption configures NewCatalog
type CatalogOption func(*catalogOptions)

// WithTable resolves identifiers from a factory table first.
func WithTable(table *Table) CatalogOption {
	return func(o *catalogOptions) {
		o.table = table
	}
}

// WithSchemaFS compiles schema-backed descriptors from the records'
// schema_location, relative to fsys.
func WithSchemaFS(fsys fs.FS) CatalogOption {
	return func(o *catalogOptions) {
		o.schemaFS = fsys
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) CatalogOption {
	return func(o *catalogOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewCatalog resolves every model named by reg. Identifiers that neither the
// table nor the schema tree can provide are recorded in Missing; sessions for
// those endpoints fail with a model-not-found error.
func NewCatalog(reg *registry.Registry, opts ...CatalogOption) *Catalog {
	o := &catalogOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	c := &Catalog{descriptors: make(map[string]Descriptor)}
	missing := make(map[string]bool)

	for _, e := range reg.Entries(registry.Filter{WithModel: true}) {
		id := e.ModelIdentifier
		if _, done := c.descriptors[id]; done || missing[id] {
			continue
		}

		d, err := resolve(o, e.Record)
		if err != nil {
			o.logger.Warn("model unavailable",
				zap.String("endpoint", e.Endpoint),
				zap.String("model", id),
				zap.Error(err),
			)
		}
		if d == nil {
			missing[id] = true
			continue
		}
		c.descriptors[id] = d
	}

	for id := range missing {
		c.missing = append(c.missing, id)
	}
	sort.Strings(c.missing)

	o.logger.Debug("model catalog ready",
		zap.Int("models", len(c.descriptors)),
		zap.Int("missing", len(c.missing)),
	)
	return c
}

func resolve(o *catalogOptions, rec registry.Record) (Descriptor, error) {
	if factory, ok := o.table.Lookup(rec.ModelIdentifier); ok {
		return factory()
	}
	if o.schemaFS == nil || rec.SchemaLocation == "" {
		return nil, nil
	}

	doc, err := fs.ReadFile(o.schemaFS, rec.SchemaLocation)
	if err != nil {
		return nil, err
	}
	return Schema(rec.ModelIdentifier, doc)
}

// Lookup returns the descriptor for identifier.
func (c *Catalog) Lookup(identifier string) (Descriptor, bool) {
	d, ok := c.descriptors[identifier]
	return d, ok
}

// Len returns the number of resolved models
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

// Missing lists identifiers named by the registry with no descriptor.
func (c *Catalog) Missing() []string {
	return append([]string(nil), c.missing...)
}
