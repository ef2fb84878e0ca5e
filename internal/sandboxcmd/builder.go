// Package sandboxcmd builds the argument vectors the executor hands to
// the external container runtime, pinning the exact resource, mount,
// and network flags the two phases require. It never runs the command
// itself; that is process.Executor's job.
package sandboxcmd

import (
	"fmt"

	"github.com/google/shlex"
	"github.com/ntpoppe/tracepoint/internal/config"
)

// Phase identifies which half of the two-phase run a command vector is for.
type Phase int

const (
	// PhaseRestore fetches dependencies; it has network access and no
	// init process since nothing long-lived needs reaping.
	PhaseRestore Phase = iota
	// PhaseTest runs the test suite with no network and an init process
	// to reap the test host's own children.
	PhaseTest
)

// Builder assembles docker-compatible argv for a submission's two phases.
type Builder struct {
	cfg           config.SandboxConfig
	containerName func(phase Phase) string
}

// NewBuilder returns a Builder that names containers
// "<prefix>-restore-<id>" and "<prefix>-test-<id>".
func NewBuilder(cfg config.SandboxConfig, namePrefix, submissionID string) *Builder {
	return &Builder{
		cfg: cfg,
		containerName: func(phase Phase) string {
			return fmt.Sprintf("%s-%s-%s", namePrefix, phaseLabel(phase), submissionID)
		},
	}
}

func phaseLabel(phase Phase) string {
	if phase == PhaseRestore {
		return "restore"
	}
	return "test"
}

// ContainerName returns the name that will be used for the given phase;
// callers use this to issue a best-effort kill/rm on timeout.
func (b *Builder) ContainerName(phase Phase) string {
	return b.containerName(phase)
}

// Build returns the full "docker run ..." argument vector (without the
// leading "docker"/"podman" binary name) for the given phase.
func (b *Builder) Build(phase Phase, workDir, packageCacheDir string) ([]string, error) {
	args := []string{
		"run", "--rm",
		"--name", b.containerName(phase),
	}

	if phase == PhaseTest {
		args = append(args, "--network", "none", "--init")
	}

	args = append(args,
		"--user", b.cfg.ContainerUser,
		fmt.Sprintf("--cpus=%s", b.cfg.CPUs),
		fmt.Sprintf("--memory=%s", b.cfg.Memory),
		fmt.Sprintf("--memory-swap=%s", b.cfg.Memory),
		fmt.Sprintf("--pids-limit=%d", b.cfg.PidsLimit),
		"-v", fmt.Sprintf("%s:/workspace", workDir),
		"-v", fmt.Sprintf("%s:/nuget", packageCacheDir),
		"-e", "NUGET_PACKAGES=/nuget",
		"-e", "DOTNET_SKIP_WORKLOAD_INTEGRITY_CHECK=1",
		"-e", "DOTNET_CLI_TELEMETRY_OPTOUT=1",
		"-e", "DOTNET_NOLOGO=1",
		"-w", "/workspace",
		b.cfg.Image,
	)

	cmd := b.cfg.RestoreCommand
	if phase == PhaseTest {
		cmd = b.cfg.TestCommand
	}

	cmdArgs, err := shlex.Split(cmd)
	if err != nil {
		return nil, fmt.Errorf("sandboxcmd: split command template: %w", err)
	}
	return append(args, cmdArgs...), nil
}

// KillArgs returns the argv for a best-effort "kill" of a still-running
// container by name.
func (b *Builder) KillArgs(phase Phase) []string {
	return []string{"kill", b.containerName(phase)}
}

// RemoveArgs returns the argv for a best-effort forced removal of a
// container by name, used after a timeout kill.
func (b *Builder) RemoveArgs(phase Phase) []string {
	return []string{"rm", "-f", b.containerName(phase)}
}
