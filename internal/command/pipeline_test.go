package command

import (
	"context"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenignUpstreamExit141IsAlwaysBenign(t *testing.T) {
	assert.True(t, benignUpstreamExit(141, nil))
}

func TestBenignUpstreamExitOtherNonZeroIsNotBenign(t *testing.T) {
	assert.False(t, benignUpstreamExit(1, nil))
	assert.False(t, benignUpstreamExit(2, nil))
}

func TestBenignUpstreamExitNegativeOneWithoutExitErrorIsBenign(t *testing.T) {
	// No *exec.ExitError to inspect for a signal, so the signal can't be
	// determined and benignUpstreamExit falls back to treating -1 as benign.
	assert.True(t, benignUpstreamExit(-1, nil))
}

func TestBenignUpstreamExitSIGPIPEIsBenign(t *testing.T) {
	cmd := exec.CommandContext(context.Background(), "sh", "-c", "kill -PIPE $$; exit 1")
	err := cmd.Run()
	require.Error(t, err)
	assert.True(t, benignUpstreamExit(exitCode(err), err))
}

func TestBenignUpstreamExitOtherSignalIsNotBenign(t *testing.T) {
	cmd := exec.CommandContext(context.Background(), "sh", "-c", "kill -TERM $$")
	err := cmd.Run()
	require.Error(t, err)
	assert.False(t, benignUpstreamExit(exitCode(err), err))
}

func TestBenignUpstreamExitSentinelSignalChecksUnderlyingWaitStatus(t *testing.T) {
	var exitErr *exec.ExitError
	cmd := exec.CommandContext(context.Background(), "sh", "-c", "kill -PIPE $$")
	err := cmd.Run()
	require.Error(t, err)
	require.ErrorAs(t, err, &exitErr)
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.True(t, ws.Signaled())
	assert.Equal(t, syscall.SIGPIPE, ws.Signal())
	assert.True(t, benignUpstreamExit(exitCode(err), err))
}
