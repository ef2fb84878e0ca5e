package runner_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ntpoppe/tracepoint/internal/config"
	"github.com/ntpoppe/tracepoint/internal/runner"
	"github.com/ntpoppe/tracepoint/internal/sandboxcmd"
	"github.com/ntpoppe/tracepoint/internal/verdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSandboxCommand drives "sh" in place of a real container runtime so
// the pipeline can be exercised without docker installed.
type fakeSandboxCommand struct {
	restoreScript func(workDir string) string
	testScript    func(workDir string) string
}

func (f fakeSandboxCommand) ContainerName(phase sandboxcmd.Phase) string {
	return fmt.Sprintf("fake-%d", phase)
}

func (f fakeSandboxCommand) Build(phase sandboxcmd.Phase, workDir, _ string) ([]string, error) {
	if phase == sandboxcmd.PhaseRestore {
		return []string{"-c", f.restoreScript(workDir)}, nil
	}
	return []string{"-c", f.testScript(workDir)}, nil
}

func (f fakeSandboxCommand) KillArgs(sandboxcmd.Phase) []string   { return []string{"-c", "true"} }
func (f fakeSandboxCommand) RemoveArgs(sandboxcmd.Phase) []string { return []string{"-c", "true"} }

func setupRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "judge-template"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "server"), 0755))
	return root
}

const passingTRX = `<?xml version="1.0" encoding="UTF-8"?>
<TestRun id="run-1">
  <Times creation="2024-01-01T00:00:00Z" start="2024-01-01T00:00:00Z" finish="2024-01-01T00:00:00.02Z"/>
  <ResultSummary outcome="Completed">
    <Counters total="1" executed="1" passed="1" failed="0" notExecuted="0" error="0" timeout="0" aborted="0" inconclusive="0"/>
  </ResultSummary>
  <Results>
    <UnitTestResult executionId="e1" testId="t1" testName="Works" outcome="Passed" duration="00:00:00.0200000" startTime="2024-01-01T00:00:00Z" endTime="2024-01-01T00:00:00.02Z"/>
  </Results>
</TestRun>`

func baseConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Workspace.RootDir = t.TempDir()
	cfg.Timeouts.RestoreSeconds = 5
	cfg.Timeouts.TestSeconds = 5
	cfg.Timeouts.CleanupSeconds = 2
	return cfg
}

func TestRunner_CompletedPath(t *testing.T) {
	root := setupRepo(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	defer os.Chdir(cwd)

	cfg := baseConfig(t)
	fake := fakeSandboxCommand{
		restoreScript: func(workDir string) string { return "exit 0" },
		testScript: func(workDir string) string {
			return fmt.Sprintf("cat > %s/results.trx <<'EOF'\n%s\nEOF", workDir, passingTRX)
		},
	}
	r := runner.NewWithBuilderFactory(cfg, "sh", func(string) runner.SandboxCommand { return fake })

	v, code := r.Run(context.Background(), "sub-ok", false)

	assert.Equal(t, 0, code)
	assert.Equal(t, verdict.StatusCompleted, v.Status)
	require.NotNil(t, v.Run)
	assert.Equal(t, 1, v.Run.Counters.Passed)
	require.Len(t, v.Tests, 1)
}

func TestRunner_TestPhaseTimeoutEmitsMinimalVerdict(t *testing.T) {
	root := setupRepo(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	defer os.Chdir(cwd)

	cfg := baseConfig(t)
	cfg.Timeouts.TestSeconds = 1
	fake := fakeSandboxCommand{
		restoreScript: func(workDir string) string { return "exit 0" },
		testScript:    func(workDir string) string { return "sleep 5" },
	}
	r := runner.NewWithBuilderFactory(cfg, "sh", func(string) runner.SandboxCommand { return fake })

	v, code := r.Run(context.Background(), "sub-timeout", false)

	assert.Equal(t, 124, code)
	assert.Equal(t, verdict.StatusTimedOut, v.Status)
	assert.Nil(t, v.Run)
}

func TestRunner_MissingArtifactIsRunnerError(t *testing.T) {
	root := setupRepo(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	defer os.Chdir(cwd)

	cfg := baseConfig(t)
	fake := fakeSandboxCommand{
		restoreScript: func(workDir string) string { return "exit 0" },
		testScript:    func(workDir string) string { return "exit 0" },
	}
	r := runner.NewWithBuilderFactory(cfg, "sh", func(string) runner.SandboxCommand { return fake })

	v, code := r.Run(context.Background(), "sub-missing", false)

	assert.Equal(t, 2, code)
	assert.Equal(t, verdict.StatusRunnerError, v.Status)
	require.NotNil(t, v.Diagnostics)
	assert.Equal(t, "test_missing_trx", v.Diagnostics.Phase)
}

func TestRunner_RestoreFailureIsRunnerError(t *testing.T) {
	root := setupRepo(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	defer os.Chdir(cwd)

	cfg := baseConfig(t)
	fake := fakeSandboxCommand{
		restoreScript: func(workDir string) string { return "exit 1" },
		testScript:    func(workDir string) string { return "exit 0" },
	}
	r := runner.NewWithBuilderFactory(cfg, "sh", func(string) runner.SandboxCommand { return fake })

	v, code := r.Run(context.Background(), "sub-restore-fail", false)

	assert.Equal(t, 1, code)
	assert.Equal(t, verdict.StatusRunnerError, v.Status)
	assert.Equal(t, "restore", v.Diagnostics.Phase)
}

func TestRunner_OversizedArtifactIsResourceLimit(t *testing.T) {
	root := setupRepo(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	defer os.Chdir(cwd)

	cfg := baseConfig(t)
	cfg.Limits.ArtifactMaxBytes = 10
	fake := fakeSandboxCommand{
		restoreScript: func(workDir string) string { return "exit 0" },
		testScript: func(workDir string) string {
			return fmt.Sprintf("cat > %s/results.trx <<'EOF'\n%s\nEOF", workDir, passingTRX)
		},
	}
	r := runner.NewWithBuilderFactory(cfg, "sh", func(string) runner.SandboxCommand { return fake })

	v, code := r.Run(context.Background(), "sub-oversized", false)

	assert.Equal(t, 137, code)
	assert.Equal(t, verdict.StatusResourceLimit, v.Status)
	require.NotNil(t, v.Diagnostics)
	assert.Equal(t, int64(10), v.Diagnostics.MaxTrxBytes)
}

func TestRunner_MalformedTrxIsRunnerError(t *testing.T) {
	root := setupRepo(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	defer os.Chdir(cwd)

	cfg := baseConfig(t)
	fake := fakeSandboxCommand{
		restoreScript: func(workDir string) string { return "exit 0" },
		testScript: func(workDir string) string {
			return fmt.Sprintf("cat > %s/results.trx <<'EOF'\nnot xml at all\nEOF", workDir)
		},
	}
	r := runner.NewWithBuilderFactory(cfg, "sh", func(string) runner.SandboxCommand { return fake })

	v, code := r.Run(context.Background(), "sub-malformed", false)

	assert.Equal(t, 3, code)
	assert.Equal(t, verdict.StatusRunnerError, v.Status)
	require.NotNil(t, v.Diagnostics)
	assert.Equal(t, "trx_parse", v.Diagnostics.Phase)
}
