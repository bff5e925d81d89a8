package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/ui"
	"github.com/gomanifold/manifold/pkg/model"
	"github.com/gomanifold/manifold/pkg/session"
	"github.com/gomanifold/manifold/pkg/transport"
)

// NewCallCommand creates the call command
func NewCallCommand() *cobra.Command {
	var (
		params  map[string]string
		query   []string
		body    string
		version string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "call <endpoint>",
		Short: "Validate and send a request to the live API",
		Long: `Resolve an endpoint, fill its path parameters, validate the payload against
the endpoint's model and send it. The response body is printed unchanged.

The API key is read from the environment variable named by api.key_env
(MANIFOLD_API_KEY by default).`,
		Example: `  manifold call /user/[username] --param username=alice
  manifold call /market/[id]/positions --param contractId=abc123 --query top=5
  manifold call /bet --body '{"contractId":"abc123","amount":10,"outcome":"YES"}'
  manifold call /bet --body @bet.json --dry-run`,
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
			catalog := model.NewCatalog(reg,
				model.WithSchemaFS(os.DirFS(a.cfg.SchemasPath())),
				model.WithLogger(a.logger),
			)

			t := transport.New(transport.Config{
				BaseURL:   a.cfg.API.BaseURL,
				Timeout:   a.cfg.API.Timeout,
				UserAgent: "manifold/" + Version,
			}, a.logger)

			s, err := a.newSession(reg, catalog, args[0], version,
				session.WithTransport(t),
				session.WithAPIKey(a.cfg.APIKey()),
			)
			if err != nil {
				return err
			}

			req := session.Request{URLParams: params}
			if len(query) > 0 {
				values, err := parseQuery(query)
				if err != nil {
					return err
				}
				req.Query = values
			}
			if body != "" {
				payload, err := readBody(body)
				if err != nil {
					return err
				}
				req.Body = payload
			}

			if dryRun {
				prepared, err := s.Prepare(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s %s\n", prepared.Method, t.URL(prepared))
				if prepared.Body != nil {
					data, err := json.MarshalIndent(prepared.Body, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, string(data))
				}
				ui.WriteSuccess(a.errOut, "Request is valid (not sent)", a.noColor)
				return nil
			}

			resp, err := s.Execute(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeIndented(a, resp)
		},
	}

	cmd.Flags().StringToStringVarP(&params, "param", "P", nil, "Path parameter as name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "Query parameter as name=value (repeatable)")
	cmd.Flags().StringVarP(&body, "body", "d", "", "JSON body, or @file to read it from a file")
	cmd.Flags().StringVar(&version, "api-version", "", "API version (default: the configured version)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print the request without sending it")

	return cmd
}

// parseQuery turns name=value pairs into url.Values; a name may repeat.
func parseQuery(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid query parameter %q: expected name=value", pair)
		}
		values.Add(name, value)
	}
	return values, nil
}

// readBody decodes the --body flag. A leading @ names a file.
func readBody(arg string) (any, error) {
	data := []byte(arg)
	if name, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		data, err = os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("body is not valid JSON: %w", err)
	}
	return payload, nil
}

func writeIndented(a *app, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		// Not JSON; print as received.
		_, err = a.out.Write(raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(a.out)
	return err
}
