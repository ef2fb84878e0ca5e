package sandboxcmd_test

import (
	"testing"

	"github.com/ntpoppe/tracepoint/internal/config"
	"github.com/ntpoppe/tracepoint/internal/sandboxcmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_RestorePhaseHasNetworkAndNoInit(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Sandbox
	b := sandboxcmd.NewBuilder(cfg, "tracepoint", "abc123")

	args, err := b.Build(sandboxcmd.PhaseRestore, "/work", "/work/_nuget-cache")
	require.NoError(t, err)

	assert.NotContains(t, args, "--network")
	assert.NotContains(t, args, "--init")
	assert.Contains(t, args, "tracepoint-restore-abc123")
}

func TestBuilder_TestPhaseHasNoNetworkAndInit(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Sandbox
	b := sandboxcmd.NewBuilder(cfg, "tracepoint", "abc123")

	args, err := b.Build(sandboxcmd.PhaseTest, "/work", "/work/_nuget-cache")
	require.NoError(t, err)

	assert.Contains(t, args, "--network")
	assert.Contains(t, args, "none")
	assert.Contains(t, args, "--init")
	assert.Contains(t, args, "tracepoint-test-abc123")
}

func TestBuilder_PinsResourceLimits(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Sandbox
	b := sandboxcmd.NewBuilder(cfg, "tracepoint", "abc123")

	args, err := b.Build(sandboxcmd.PhaseTest, "/work", "/cache")
	require.NoError(t, err)

	assert.Contains(t, args, "--cpus=1")
	assert.Contains(t, args, "--memory=512m")
	assert.Contains(t, args, "--memory-swap=512m")
	assert.Contains(t, args, "--pids-limit=128")
}
