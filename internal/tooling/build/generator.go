package build

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/gomanifold/manifold/internal/tooling/extcmd"
)

// DefaultGeneratorCommand is run once per artifact when no generator is configured.
const DefaultGeneratorCommand = "go-jsonschema"

// DefaultGeneratorArgs are the default argument templates. go-jsonschema
// names the root type after the schema title, so the generated type name is
// not guaranteed to be the model identifier; the identifier reaches the
// runtime through model.Struct registrations. Generators that accept a type
// name can be given {{.Model}}.
var DefaultGeneratorArgs = []string{"-p", "{{.Package}}", "-o", "{{.Output}}", "{{.Input}}"}

// Job is a single model generation request.
type Job struct {
	Endpoint string
	// Input is the schema artifact path.
	Input string
	// Output is the Go file to write.
	Output  string
	Package string
	Model   string
	// Kind is the artifact format, taken from its extension ("json").
	Kind string
}

// Generator turns one schema artifact into a Go model file.
type Generator interface {
	Generate(ctx context.Context, job Job) error
	// Fingerprint identifies the generator invocation for job; a change
	// invalidates cached output.
	Fingerprint(job Job) string
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, job Job) error

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// Fingerprint is constant for a GeneratorFunc.
func (f GeneratorFunc) Fingerprint(job Job) string {
	return "func"
}

// ExecGenerator runs an external generator command whose arguments are
// text/template strings over Job.
type ExecGenerator struct {
	command string
	args    []*template.Template
	timeout time.Duration
	dir     string
	runner  extcmd.Runner
}

// NewExecGenerator parses the argument templates up front.
func NewExecGenerator(command string, args []string, runner extcmd.Runner, timeout time.Duration) (*ExecGenerator, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("generator command is empty")
	}

	parsed := make([]*template.Template, len(args))
	for i, arg := range args {
		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).Option("missingkey=error").Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid generator argument %q: %w", arg, err)
		}
		parsed[i] = tmpl
	}

	return &ExecGenerator{
		command: command,
		args:    parsed,
		timeout: timeout,
		runner:  runner,
	}, nil
}

// WithDir sets the working directory the generator runs in.
func (g *ExecGenerator) WithDir(dir string) *ExecGenerator {
	g.dir = dir
	return g
}

// Command renders the command line for job.
func (g *ExecGenerator) Command(job Job) (extcmd.Command, error) {
	args := make([]string, len(g.args))
	for i, tmpl := range g.args {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, job); err != nil {
			return extcmd.Command{}, fmt.Errorf("render generator argument: %w", err)
		}
		args[i] = buf.String()
	}

	return extcmd.Command{
		Name:    g.command,
		Args:    args,
		Dir:     g.dir,
		Timeout: g.timeout,
	}, nil
}

// Generate runs the command once and waits for it.
func (g *ExecGenerator) Generate(ctx context.Context, job Job) error {
	cmd, err := g.Command(job)
	if err != nil {
		return err
	}
	_, err = g.runner.Run(ctx, cmd)
	return err
}

// Fingerprint is the rendered command line.
func (g *ExecGenerator) Fingerprint(job Job) string {
	cmd, err := g.Command(job)
	if err != nil {
		return ""
	}
	return cmd.String()
}
