package watch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gomanifold/manifold/internal/tooling/build"
)

// Builder runs one registry build. *build.System satisfies it.
type Builder interface {
	Build(ctx context.Context) (*build.BuildResult, error)
}

// Rebuilder reruns the registry build whenever watched sources change and
// reports every run to the notifier and an optional callback.
type Rebuilder struct {
	builder  Builder
	notifier *Notifier
	logger   *zap.Logger

	// OnResult is called after every build, from the build goroutine.
	OnResult func(files []string, result *build.BuildResult, err error)

	mu sync.Mutex // serializes builds
}

// NewRebuilder creates a rebuilder. notifier may be nil.
func NewRebuilder(builder Builder, notifier *Notifier, logger *zap.Logger) *Rebuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rebuilder{builder: builder, notifier: notifier, logger: logger}
}

// Rebuild runs one build for the given changed files. Builds never overlap;
// a change arriving mid-build waits for the running one to finish.
func (r *Rebuilder) Rebuild(ctx context.Context, files []string) (*build.BuildResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.notifier != nil {
		r.notifier.NotifyBuilding(files)
	}
	r.logger.Info("rebuilding registry", zap.Strings("files", files))

	start := time.Now()
	result, err := r.builder.Build(ctx)
	switch {
	case err != nil:
		r.logger.Error("rebuild failed", zap.Error(err))
		if r.notifier != nil {
			r.notifier.NotifyFailed(err)
		}
	default:
		endpoints := 0
		if result.Registry != nil {
			endpoints = result.Registry.Len()
		}
		if r.notifier != nil {
			r.notifier.NotifyRebuilt(endpoints, time.Since(start), result.Report.Issues)
		}
	}

	if r.OnResult != nil {
		r.OnResult(files, result, err)
	}
	return result, err
}

// Watch starts a FileWatcher that triggers Rebuild and blocks until ctx is
// cancelled.
func (r *Rebuilder) Watch(ctx context.Context, opts WatcherOptions) error {
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	fw, err := NewFileWatcher(opts, func(files []string) error {
		// Rebuild logs and publishes its own failures.
		r.Rebuild(ctx, files)
		return nil
	})
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		fw.Stop()
		return err
	}
	r.logger.Info("watching sources", zap.Strings("paths", opts.Paths))

	<-ctx.Done()
	return fw.Stop()
}
