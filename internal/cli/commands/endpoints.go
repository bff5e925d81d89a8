package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/ui"
	"github.com/gomanifold/manifold/pkg/endpoint"
	"github.com/gomanifold/manifold/pkg/model"
	"github.com/gomanifold/manifold/pkg/registry"
	"github.com/gomanifold/manifold/pkg/session"
)

// NewEndpointsCommand creates the endpoints command
func NewEndpointsCommand() *cobra.Command {
	var (
		method    string
		prefix    string
		withModel bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:     "endpoints",
		Aliases: []string{"ls"},
		Short:   "List registered endpoints",
		Example: `  manifold endpoints
  manifold endpoints --method POST
  manifold endpoints --prefix /v0/market --with-model
  manifold endpoints --json`,
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

			if prefix != "" {
				prefix = endpoint.Canonical(a.cfg.Version, prefix)
			}
			entries := reg.Entries(registry.Filter{
				Method:    method,
				Prefix:    prefix,
				WithModel: withModel,
			})

			if asJSON {
				return writeEntriesJSON(a, entries)
			}
			if len(entries) == 0 {
				fmt.Fprint(a.out, ui.Info("No endpoints match", a.noColor))
				return nil
			}
			ui.EndpointTable(a.out, entries, a.noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "", "Only endpoints with this HTTP method")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only endpoints under this path")
	cmd.Flags().BoolVar(&withModel, "with-model", false, "Only endpoints with a validation model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

type entryJSON struct {
	Endpoint string `json:"endpoint"`
	registry.Record
}

func writeEntriesJSON(a *app, entries []registry.Entry) error {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = entryJSON{Endpoint: e.Endpoint, Record: e.Record}
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// NewResolveCommand creates the resolve command
func NewResolveCommand() *cobra.Command {
	var (
		version string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <endpoint>",
		Short: "Show how an endpoint resolves against the registry",
		Long: `Resolve an endpoint the same way a call would: normalize the path, look it
up in the registry (accepting alias spellings of path parameters) and show
the method and validation model it maps to. Nothing is sent.`,
		Example: `  manifold resolve /user/[username]
  manifold resolve v0/market/[contractId]/positions`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEndpoints,
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
			s, err := a.newSession(reg, nil, args[0], version)
			if err != nil {
				return err
			}

			if asJSON {
				return writeEntriesJSON(a, []registry.Entry{{Endpoint: s.Endpoint(), Record: s.Record()}})
			}

			rec := s.Record()
			kv := ui.NewKeyValueTable(a.out, a.noColor)
			kv.AddRow("Endpoint", s.Endpoint())
			kv.AddRow("Method", rec.Method)
			if rec.HasModel() {
				kv.AddRow("Module", rec.ModuleLocator)
				kv.AddRow("Model", rec.ModelIdentifier)
				kv.AddRow("Schema", rec.SchemaLocation)
			} else {
				kv.AddRow("Model", "none (requests are not validated)")
			}
			if params := s.Params(); len(params) > 0 {
				kv.AddRow("Params", strings.Join(params, ", "))
			}
			kv.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "api-version", "", "API version (default: the configured version)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

// newSession resolves ep with the configured aliases and endpoint
// suggestions. An empty version means the configured one.
func (a *app) newSession(reg *registry.Registry, catalog *model.Catalog, ep, version string, opts ...session.Option) (*session.Session, error) {
	if version == "" {
		version = a.cfg.Version
	}
	aliases, err := a.aliases()
	if err != nil {
		return nil, err
	}
	opts = append([]session.Option{
		session.WithAliases(aliases),
		session.WithSuggestions(ui.SuggestEndpoints),
		session.WithLogger(a.logger),
	}, opts...)
	return session.New(reg, catalog, ep, version, opts...)
}
