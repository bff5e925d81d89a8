package extcmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// TestHelperProcess is not a real test; it is the child process spawned by
// helperCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("EXTCMD_HELPER") != "1" {
		return
	}
	defer os.Exit(0)

	switch os.Getenv("EXTCMD_MODE") {
	case "ok":
		fmt.Fprint(os.Stdout, "generated")
	case "fail":
		fmt.Fprint(os.Stderr, "bad schema")
		code, _ := strconv.Atoi(os.Getenv("EXTCMD_CODE"))
		os.Exit(code)
	case "sleep":
		time.Sleep(10 * time.Second)
	}
}

func helperCommand(mode string, env ...string) Command {
	return Command{
		Name: os.Args[0],
		Args: []string{"-test.run=TestHelperProcess"},
		Env:  append([]string{"EXTCMD_HELPER=1", "EXTCMD_MODE=" + mode}, env...),
	}
}

func TestRunSuccess(t *testing.T) {
	result, err := NewRunner(nil).Run(context.Background(), helperCommand("ok"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "generated")
}

func TestRunNonZeroExit(t *testing.T) {
	result, err := NewRunner(nil).Run(context.Background(), helperCommand("fail", "EXTCMD_CODE=3"))
	require.Error(t, err)

	assert.True(t, stderrors.Is(err, mferrors.ErrToolFailed))
	assert.False(t, stderrors.Is(err, mferrors.ErrToolTimeout))
	require.NotNil(t, result)
	assert.Equal(t, 3, result.ExitCode)

	var toolErr *mferrors.Error
	require.True(t, stderrors.As(err, &toolErr))
	assert.Contains(t, toolErr.Output, "bad schema")
}

func TestRunTimeout(t *testing.T) {
	cmd := helperCommand("sleep")
	cmd.Timeout = 200 * time.Millisecond

	start := time.Now()
	_, err := NewRunner(nil).Run(context.Background(), cmd)
	require.Error(t, err)

	assert.True(t, stderrors.Is(err, mferrors.ErrToolTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunToolNotFound(t *testing.T) {
	result, err := NewRunner(nil).Run(context.Background(), Command{Name: "manifold-no-such-tool-xyz"})
	require.Error(t, err)

	assert.Nil(t, result)
	assert.True(t, stderrors.Is(err, mferrors.ErrToolNotFound))
}

func TestCommandString(t *testing.T) {
	cmd := Command{Name: "go-jsonschema", Args: []string{"-p", "models", "bet.json"}}
	assert.Equal(t, "go-jsonschema -p models bet.json", cmd.String())
}
