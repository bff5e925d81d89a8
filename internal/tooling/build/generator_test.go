package build

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomanifold/manifold/internal/tooling/extcmd"
	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

type recordingRunner struct {
	commands []extcmd.Command
	err      error
}

func (r *recordingRunner) Run(_ context.Context, cmd extcmd.Command) (*extcmd.Result, error) {
	r.commands = append(r.commands, cmd)
	return &extcmd.Result{}, r.err
}

var userJob = Job{
	Endpoint: "/v0/user/[username]",
	Input:    "schema/user/{username}.json",
	Output:   "models/user/username.go",
	Package:  "user",
	Model:    "UserUsername",
	Kind:     "json",
}

func TestExecGeneratorCommand(t *testing.T) {
	gen, err := NewExecGenerator(DefaultGeneratorCommand, DefaultGeneratorArgs, &recordingRunner{}, time.Minute)
	require.NoError(t, err)

	cmd, err := gen.WithDir("/work").Command(userJob)
	require.NoError(t, err)

	assert.Equal(t, "go-jsonschema", cmd.Name)
	assert.Equal(t, []string{"-p", "user", "-o", "models/user/username.go", "schema/user/{username}.json"}, cmd.Args)
	assert.Equal(t, "/work", cmd.Dir)
	assert.Equal(t, time.Minute, cmd.Timeout)
	assert.Equal(t, "go-jsonschema -p user -o models/user/username.go schema/user/{username}.json", gen.Fingerprint(userJob))
}

func TestExecGeneratorGenerate(t *testing.T) {
	runner := &recordingRunner{}
	gen, err := NewExecGenerator("datamodel-gen", []string{"--input", "{{.Input}}", "--class-name", "{{.Model}}", "--type", "{{.Kind}}"}, runner, 0)
	require.NoError(t, err)

	require.NoError(t, gen.Generate(context.Background(), userJob))
	require.Len(t, runner.commands, 1)
	assert.Equal(t, []string{"--input", "schema/user/{username}.json", "--class-name", "UserUsername", "--type", "json"}, runner.commands[0].Args)
}

func TestExecGeneratorPropagatesToolErrors(t *testing.T) {
	runner := &recordingRunner{err: mferrors.NewToolTimeout("go-jsonschema", time.Second)}
	gen, err := NewExecGenerator(DefaultGeneratorCommand, DefaultGeneratorArgs, runner, time.Second)
	require.NoError(t, err)

	err = gen.Generate(context.Background(), userJob)
	assert.ErrorIs(t, err, mferrors.ErrToolTimeout)
}

func TestNewExecGeneratorValidation(t *testing.T) {
	_, err := NewExecGenerator("", nil, &recordingRunner{}, 0)
	assert.Error(t, err)

	_, err = NewExecGenerator("gen", []string{"{{.Input"}, &recordingRunner{}, 0)
	assert.Error(t, err)

	gen, err := NewExecGenerator("gen", []string{"{{.Unknown}}"}, &recordingRunner{}, 0)
	require.NoError(t, err)
	_, err = gen.Command(userJob)
	assert.Error(t, err)
	assert.Empty(t, gen.Fingerprint(userJob))
}
