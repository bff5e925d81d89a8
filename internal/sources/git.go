// Package sources retrieves the API documentation and schema tree from the
// upstream repository into a local checkout.
package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gomanifold/manifold/internal/tooling/extcmd"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// DefaultRef is checked out when no ref is configured.
const DefaultRef = "main"

// Result describes the checkout after a fetch.
type Result struct {
	Dir      string
	Ref      string
	Revision string
	// Cloned is true when the checkout was created rather than updated.
	Cloned   bool
	Duration time.Duration
}

// Fetcher brings a local checkout up to date.
type Fetcher interface {
	Fetch(ctx context.Context) (*Result, error)
}

// GitFetcher keeps a shallow git checkout of one ref.
type GitFetcher struct {
	Repository string
	Ref        string
	Dir        string
	Timeout    time.Duration

	runner extcmd.Runner
	logger *zap.Logger
}

// NewGitFetcher creates a fetcher that runs git through runner.
func NewGitFetcher(repository, ref, dir string, runner extcmd.Runner, logger *zap.Logger) (*GitFetcher, error) {
	if strings.TrimSpace(repository) == "" {
		return nil, mferrors.NewInvalidConfig("sources.repository is not set")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, mferrors.NewInvalidConfig("sources.checkout is not set")
	}
	if ref == "" {
		ref = DefaultRef
	}
	if runner == nil {
		runner = extcmd.NewRunner(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitFetcher{
		Repository: repository,
		Ref:        ref,
		Dir:        dir,
		Timeout:    extcmd.DefaultTimeout,
		runner:     runner,
		logger:     logger,
	}, nil
}

// Fetch clones the repository when the checkout does not exist yet and
// fast-forwards it otherwise.
func (g *GitFetcher) Fetch(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{Dir: g.Dir, Ref: g.Ref}

	exists, err := g.isCheckout()
	if err != nil {
		return nil, err
	}

	if exists {
		g.logger.Info("updating sources", zap.String("dir", g.Dir), zap.String("ref", g.Ref))
		if _, err := g.git(ctx, "-C", g.Dir, "pull", "--ff-only", "origin", g.Ref); err != nil {
			return nil, err
		}
	} else {
		g.logger.Info("cloning sources",
			zap.String("repository", g.Repository),
			zap.String("ref", g.Ref),
			zap.String("dir", g.Dir),
		)
		if err := os.MkdirAll(filepath.Dir(g.Dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create checkout parent: %w", err)
		}
		if _, err := g.git(ctx, "clone", "--depth", "1", "--branch", g.Ref, g.Repository, g.Dir); err != nil {
			return nil, err
		}
		result.Cloned = true
	}

	res, err := g.git(ctx, "-C", g.Dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	result.Revision = strings.TrimSpace(res.Stdout)
	result.Duration = time.Since(start)

	g.logger.Info("sources ready",
		zap.String("revision", result.Revision),
		zap.Bool("cloned", result.Cloned),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (g *GitFetcher) isCheckout() (bool, error) {
	info, err := os.Stat(filepath.Join(g.Dir, ".git"))
	switch {
	case err == nil:
		return info.IsDir(), nil
	case errors.Is(err, os.ErrNotExist):
		if entries, rerr := os.ReadDir(g.Dir); rerr == nil && len(entries) > 0 {
			return false, mferrors.NewInvalidConfig(
				fmt.Sprintf("checkout directory %s exists and is not a git checkout", g.Dir))
		}
		return false, nil
	default:
		return false, err
	}
}

func (g *GitFetcher) git(ctx context.Context, args ...string) (*extcmd.Result, error) {
	return g.runner.Run(ctx, extcmd.Command{
		Name: "git",
		Args: args,
		// Never block on a credential prompt.
		Env:     []string{"GIT_TERMINAL_PROMPT=0"},
		Timeout: g.Timeout,
	})
}
