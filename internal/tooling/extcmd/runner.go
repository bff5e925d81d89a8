// Package extcmd runs external tools (the model generator, git) as blocking
// calls with a hard timeout. Failures are classified as tool-not-found,
// non-zero exit or timeout; nothing is retried.
package extcmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// DefaultTimeout applies when a Command sets no timeout.
const DefaultTimeout = 2 * time.Minute

// Command describes one external process invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string // appended to the current environment
	Timeout time.Duration
}

// String renders the command line for logs and cache keys.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the captured outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Output returns stderr followed by stdout, trimmed.
func (r *Result) Output() string {
	return strings.TrimSpace(r.Stderr + "\n" + r.Stdout)
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger *zap.Logger
}

// NewRunner creates an ExecRunner
func NewRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger}
}

// Run executes cmd and waits for it. The returned error is a *errors.Error of
// kind ToolNotFound, ToolFailed or ToolTimeout; the Result is returned
// whenever the process started, including on failure.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	path, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, mferrors.NewToolNotFound(c.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	// Children holding the output pipes must not keep Wait blocked past the deadline.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running external tool",
		zap.String("command", c.String()),
		zap.Duration("timeout", timeout),
	)

	start := time.Now()
	runErr := cmd.Run()
	result := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr == nil {
		return result, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("external tool timed out",
			zap.String("command", c.String()),
			zap.Duration("timeout", timeout),
		)
		return result, mferrors.NewToolTimeout(c.Name, timeout).WithCause(runErr)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		r.logger.Warn("external tool failed",
			zap.String("command", c.String()),
			zap.Int("exit_code", exitErr.ExitCode()),
		)
		return result, mferrors.NewToolFailed(c.Name, exitErr.ExitCode(), result.Output())
	}

	if errors.Is(runErr, exec.ErrNotFound) {
		return result, mferrors.NewToolNotFound(c.Name, runErr)
	}

	return result, mferrors.NewToolFailed(c.Name, -1, result.Output()).WithCause(runErr)
}
