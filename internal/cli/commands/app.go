package commands

import (
	"context"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gomanifold/manifold/internal/cli/config"
	"github.com/gomanifold/manifold/internal/logging"
	"github.com/gomanifold/manifold/internal/tooling/build"
	"github.com/gomanifold/manifold/internal/tooling/extcmd"
	"github.com/gomanifold/manifold/pkg/endpoint"
	"github.com/gomanifold/manifold/pkg/registry"
)

// app bundles the configuration and logger a command runs with.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	out     io.Writer
	errOut  io.Writer
	noColor bool
}

func loadConfig() (*config.Config, error) {
	if globals.configPath != "" {
		return config.LoadFile(globals.configPath)
	}
	return config.Load()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return &app{
		cfg: cfg,
		logger: logging.New(logging.Options{
			Verbose: globals.verbose,
			JSON:    globals.jsonLogs,
		}),
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		noColor: globals.noColor || color.NoColor,
	}, nil
}

func (a *app) close() {
	a.logger.Sync()
}

func (a *app) loadRegistry() (*registry.Registry, error) {
	return registry.Load(a.cfg.Registry)
}

func (a *app) aliases() (*endpoint.AliasSet, error) {
	return a.cfg.AliasSet()
}

// buildSetup controls newBuildSystem.
type buildSetup struct {
	noCache  bool
	parallel bool
	progress func(current, total int, message string)
}

// newBuildSystem wires the configured generator and cache into a build
// system. The returned cleanup closes the cache.
func (a *app) newBuildSystem(ctx context.Context, setup buildSetup) (*build.System, func(), error) {
	aliases, err := a.aliases()
	if err != nil {
		return nil, nil, err
	}

	gen, err := build.NewExecGenerator(
		a.cfg.Codegen.Command,
		a.cfg.Codegen.Args,
		extcmd.NewRunner(a.logger),
		a.cfg.Codegen.Timeout,
	)
	if err != nil {
		return nil, nil, err
	}

	var cache *build.Cache
	if a.cfg.Build.Cache.Enabled && !setup.noCache {
		cache, err = a.newCache(ctx)
		if err != nil {
			return nil, nil, err
		}
	}
	cleanup := func() {
		if cache != nil {
			if err := cache.Close(); err != nil {
				a.logger.Warn("closing build cache", zap.Error(err))
			}
		}
	}

	system, err := build.NewSystem(&build.BuildOptions{
		DocsPath:     a.cfg.DocsPath(),
		SchemaDir:    a.cfg.SchemasPath(),
		ModelsDir:    a.cfg.Codegen.ModelsDir,
		RootPackage:  a.cfg.Codegen.Package,
		RegistryPath: a.cfg.Registry,
		Version:      a.cfg.Version,
		Aliases:      aliases,
		Extension:    a.cfg.Sources.Extension,
		Exclude:      a.cfg.Sources.Exclude,
		Parallel:     a.cfg.Build.Parallel || setup.parallel,
		MaxJobs:      a.cfg.Build.MaxJobs,
		Generator:    gen,
		Cache:        cache,
		Logger:       a.logger,
		ProgressFunc: setup.progress,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return system, cleanup, nil
}

func (a *app) newCache(ctx context.Context) (*build.Cache, error) {
	cc := a.cfg.Build.Cache
	switch cc.Backend {
	case config.CacheBackendRedis:
		store, err := build.NewRedisStore(ctx, build.RedisConfig{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
			Prefix:   cc.Redis.Prefix,
			TTL:      cc.Redis.TTL,
		})
		if err != nil {
			return nil, err
		}
		a.logger.Debug("using redis build cache", zap.String("addr", cc.Redis.Addr))
		return build.NewCache(store), nil
	default:
		store, err := build.NewFileStore(cc.Dir)
		if err != nil {
			return nil, err
		}
		return build.NewCache(store), nil
	}
}
