package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gomanifold/manifold/internal/cli/ui"
	"github.com/gomanifold/manifold/internal/tooling/build"
	"github.com/gomanifold/manifold/internal/watch"
	"github.com/gomanifold/manifold/internal/web/server"
	"github.com/gomanifold/manifold/pkg/registry"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var (
		host    string
		port    int
		watchOn bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over HTTP",
		Long: `Serve the endpoint registry for tooling and dashboards.

Routes:
  GET /health                                  status and endpoint count
  GET /endpoints?method=&prefix=&with_model=   registered endpoints
  GET /endpoints/resolve?path=&version=        resolve one endpoint
  GET /registry                                the registry file
  GET /events                                  rebuild events (websocket, --watch)

With --watch the registry is rebuilt on source changes and swapped in
without a restart.`,
		Example: `  manifold serve
  manifold serve --port 8080 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if host == "" {
				host = a.cfg.Server.Host
			}
			if port == 0 {
				port = a.cfg.Server.Port
			}
			return a.serve(cmd.Context(), net.JoinHostPort(host, strconv.Itoa(port)), watchOn)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default: server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: server.port)")
	cmd.Flags().BoolVarP(&watchOn, "watch", "w", false, "Rebuild on source changes")

	return cmd
}

func (a *app) serve(ctx context.Context, addr string, watchOn bool) error {
	aliases, err := a.aliases()
	if err != nil {
		return err
	}

	var reg *registry.Registry
	if !watchOn {
		if reg, err = a.loadRegistry(); err != nil {
			return err
		}
	} else {
		// Filled by the first build.
		reg, _ = registry.New(nil)
	}

	notifier := watch.NewNotifier(a.logger)
	api := server.NewAPI(reg,
		server.WithAliases(aliases),
		server.WithSuggestions(ui.SuggestEndpoints),
		server.WithEvents(http.HandlerFunc(notifier.HandleWebSocket)),
		server.WithCORS(a.cfg.Server.CORSOrigins),
		server.WithLogger(a.logger),
	)

	cfg := server.DefaultConfig(api.Routes())
	cfg.Address = addr
	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	gs := server.NewGracefulShutdown(srv, &server.ShutdownConfig{Logger: a.logger})
	gs.RegisterHook(func(context.Context) error {
		notifier.Close()
		return nil
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if watchOn {
		system, cleanup, err := a.newBuildSystem(ctx, buildSetup{})
		if err != nil {
			return err
		}
		defer cleanup()

		rebuilder := watch.NewRebuilder(system, notifier, a.logger)
		rebuilder.OnResult = func(files []string, result *build.BuildResult, err error) {
			if err == nil && result.Registry != nil {
				api.SetRegistry(result.Registry)
			}
			a.printRebuild(files, result, err)
		}
		go func() {
			if err := a.watchSources(ctx, rebuilder); err != nil {
				a.logger.Error("watch stopped", zap.Error(err))
				cancel()
			}
		}()
	}

	if err := srv.Listen(); err != nil {
		return err
	}
	fmt.Fprint(a.errOut, ui.Info(fmt.Sprintf("Serving %d endpoint(s) on http://%s", api.Registry().Len(), srv.Addr()), a.noColor))
	return gs.Run(ctx)
}
