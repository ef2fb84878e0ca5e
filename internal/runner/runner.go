// Package runner drives the submission pipeline end to end: workspace
// provisioning, the restore and test sandbox phases, artifact discovery,
// report conversion, and final verdict emission. It is the only
// component that knows the whole state machine; every other package is
// a single-purpose tool it calls in sequence.
package runner

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/ntpoppe/tracepoint/internal/config"
	"github.com/ntpoppe/tracepoint/internal/process"
	"github.com/ntpoppe/tracepoint/internal/report"
	"github.com/ntpoppe/tracepoint/internal/sandboxcmd"
	"github.com/ntpoppe/tracepoint/internal/verdict"
	"github.com/ntpoppe/tracepoint/internal/workspace"
	appErr "github.com/ntpoppe/tracepoint/pkg/errors"
	"github.com/ntpoppe/tracepoint/pkg/logger"
	"go.uber.org/zap"
)

// resourceLimitMarkers are the case-insensitive substrings whose
// presence in captured output implies the sandbox killed the child for
// exceeding a resource limit, independent of the raw exit code.
var resourceLimitMarkers = []string{
	"out of memory",
	"outofmemoryexception",
	"killed",
	"test host process crashed",
	"test run aborted",
}

// SandboxCommand builds the container-runtime argument vectors the
// runner hands to process.Executor; *sandboxcmd.Builder satisfies it.
type SandboxCommand interface {
	ContainerName(phase sandboxcmd.Phase) string
	Build(phase sandboxcmd.Phase, workDir, packageCacheDir string) ([]string, error)
	KillArgs(phase sandboxcmd.Phase) []string
	RemoveArgs(phase sandboxcmd.Phase) []string
}

// Runner orchestrates one submission through the full pipeline.
type Runner struct {
	cfg        config.Config
	binary     string
	workspaces *workspace.Manager
	executor   *process.Executor
	verdicts   *verdict.Builder
	converter  *report.Converter
	builderFor func(submissionID string) SandboxCommand
}

// New returns a Runner wired from cfg. binary is the container runtime
// executable to invoke ("docker" or "podman").
func New(cfg config.Config, binary string) *Runner {
	return NewWithBuilderFactory(cfg, binary, func(submissionID string) SandboxCommand {
		return sandboxcmd.NewBuilder(cfg.Sandbox, "tracepoint", submissionID)
	})
}

// NewWithBuilderFactory is New with the sandbox-command factory
// injected, letting tests substitute a fake command builder without
// touching the real container runtime.
func NewWithBuilderFactory(cfg config.Config, binary string, builderFor func(submissionID string) SandboxCommand) *Runner {
	return &Runner{
		cfg:        cfg,
		binary:     binary,
		workspaces: workspace.NewManager(cfg.Workspace.RootDir, cfg.Workspace.TemplateName, cfg.Workspace.PackageCache),
		executor:   process.NewExecutor(cfg.Limits.StreamCapChars),
		verdicts:   verdict.NewBuilder(cfg.Limits.FieldCapChars),
		converter:  report.NewConverter(cfg.Limits.FieldCapChars),
		builderFor: builderFor,
	}
}

// Run executes the full pipeline for submissionID and returns the
// canonical verdict and the process exit code to surface to the OS.
func (r *Runner) Run(ctx context.Context, submissionID string, keep bool) (verdict.Verdict, int) {
	ctx = logger.WithSubmissionID(ctx, submissionID)

	paths, err := r.workspaces.Create(submissionID)
	if err != nil {
		wsErr := appErr.Wrap(err, appErr.WorkspaceInitFailed)
		logger.Error(ctx, "workspace init failed", zap.Error(wsErr))
		v, code := r.verdicts.RunnerError(submissionID, "workspace_init", 0, wsErr.Code.ExitCode(), "", "", false, false)
		return v, code
	}
	defer func() {
		if keep {
			logger.Info(ctx, "keeping workspace", zap.String("workDir", paths.WorkDir))
		}
		if cleanupErr := r.workspaces.Cleanup(paths, keep); cleanupErr != nil {
			logger.Warn(ctx, "workspace cleanup failed", zap.Error(cleanupErr))
		}
	}()

	sc := r.builderFor(submissionID)

	restoreOutcome, restoreErr := r.runPhase(ctx, sc, sandboxcmd.PhaseRestore, paths, time.Duration(r.cfg.Timeouts.RestoreSeconds)*time.Second)
	if restoreErr != nil {
		phaseErr := appErr.Wrap(restoreErr, appErr.PhaseFailure)
		logger.Error(ctx, "restore phase failed to start", zap.Error(phaseErr))
		v, code := r.verdicts.RunnerError(submissionID, "restore", phaseErr.Code.ExitCode(), phaseErr.Code.ExitCode(), "", "", false, false)
		return v, code
	}
	if restoreOutcome.TimedOut {
		r.killAndRemove(ctx, sc, sandboxcmd.PhaseRestore)
		v, code := r.verdicts.Timeout(submissionID)
		return v, code
	}
	if restoreOutcome.ExitCode != 0 {
		phaseErr := appErr.New(appErr.PhaseFailure)
		logger.Error(ctx, "restore phase exited non-zero", zap.Error(phaseErr), zap.Int("exitCode", restoreOutcome.ExitCode))
		v, code := r.verdicts.RunnerError(submissionID, "restore", restoreOutcome.ExitCode, 0,
			restoreOutcome.Stdout, restoreOutcome.Stderr, restoreOutcome.StdoutTruncated, restoreOutcome.StderrTruncated)
		return v, code
	}

	testOutcome, testErr := r.runPhase(ctx, sc, sandboxcmd.PhaseTest, paths, time.Duration(r.cfg.Timeouts.TestSeconds)*time.Second)
	if testErr != nil {
		phaseErr := appErr.Wrap(testErr, appErr.PhaseFailure)
		logger.Error(ctx, "test phase failed to start", zap.Error(phaseErr))
		v, code := r.verdicts.RunnerError(submissionID, "test", phaseErr.Code.ExitCode(), phaseErr.Code.ExitCode(), "", "", false, false)
		return v, code
	}
	if testOutcome.TimedOut {
		r.killAndRemove(ctx, sc, sandboxcmd.PhaseTest)
		v, code := r.verdicts.Timeout(submissionID)
		return v, code
	}

	artifactPath := workspace.FindArtifact(paths.WorkDir, r.cfg.Sandbox.ReportFile)
	if artifactPath == "" {
		if resourceLimitHit(testOutcome.ExitCode, testOutcome.Stdout, testOutcome.Stderr) {
			limitErr := appErr.New(appErr.ResourceLimitHit)
			logger.Error(ctx, "resource limit hit with no test report produced", zap.Error(limitErr))
			v, code := r.verdicts.ResourceLimitProcess(submissionID, "sandbox signaled a resource limit with no test report produced",
				testOutcome.Stdout, testOutcome.Stderr, testOutcome.StdoutTruncated, testOutcome.StderrTruncated, testOutcome.ExitCode)
			return v, code
		}
		missingErr := appErr.New(appErr.MissingArtifact)
		logger.Error(ctx, "test phase produced no trx artifact", zap.Error(missingErr))
		v, code := r.verdicts.RunnerError(submissionID, "test_missing_trx", testOutcome.ExitCode, fallbackExitCode(testOutcome.ExitCode, missingErr.Code.ExitCode()),
			testOutcome.Stdout, testOutcome.Stderr, testOutcome.StdoutTruncated, testOutcome.StderrTruncated)
		return v, code
	}

	if info, statErr := os.Stat(artifactPath); statErr == nil && info.Size() > r.cfg.Limits.ArtifactMaxBytes {
		sizeErr := appErr.Newf(appErr.ArtifactTooLarge, "trx artifact is %d bytes, exceeds %d byte cap", info.Size(), r.cfg.Limits.ArtifactMaxBytes)
		logger.Error(ctx, "test report artifact exceeds size cap", zap.Error(sizeErr))
		v, code := r.verdicts.ResourceLimitArtifact(submissionID, info.Size(), r.cfg.Limits.ArtifactMaxBytes, testOutcome.ExitCode)
		return v, code
	}

	v, convErr := r.converter.Convert(submissionID, string(verdict.StatusCompleted), artifactPath, report.Overrides{})
	if convErr != nil {
		parseErr := appErr.GetError(convErr)
		logger.Error(ctx, "failed to parse trx report", zap.Error(parseErr))
		v, code := r.verdicts.RunnerError(submissionID, "trx_parse", testOutcome.ExitCode, fallbackExitCode(testOutcome.ExitCode, parseErr.Code.ExitCode()),
			testOutcome.Stdout, testOutcome.Stderr, testOutcome.StdoutTruncated, testOutcome.StderrTruncated)
		return v, code
	}

	return v, testOutcome.ExitCode
}

func (r *Runner) runPhase(ctx context.Context, sc SandboxCommand, phase sandboxcmd.Phase, paths workspace.Paths, timeout time.Duration) (process.Outcome, error) {
	args, err := sc.Build(phase, paths.WorkDir, paths.PackageCacheDir)
	if err != nil {
		return process.Outcome{}, err
	}
	logger.Info(ctx, "running sandbox phase", zap.String("container", sc.ContainerName(phase)))
	return r.executor.Run(ctx, r.binary, args, paths.WorkDir, timeout)
}

// killAndRemove best-effort kills then removes a still-running
// container after a timeout; both calls carry their own short budget.
// A failure to launch either command is logged and swallowed; their
// exit codes are ignored.
func (r *Runner) killAndRemove(ctx context.Context, sc SandboxCommand, phase sandboxcmd.Phase) {
	budget := time.Duration(r.cfg.Timeouts.CleanupSeconds) * time.Second
	if _, err := r.executor.Run(ctx, r.binary, sc.KillArgs(phase), "", budget); err != nil {
		logger.Warn(ctx, "container kill failed", zap.Error(err))
	}
	if _, err := r.executor.Run(ctx, r.binary, sc.RemoveArgs(phase), "", budget); err != nil {
		logger.Warn(ctx, "container remove failed", zap.Error(err))
	}
}

func resourceLimitHit(exitCode int, stdout, stderr string) bool {
	if exitCode == appErr.ResourceLimitHit.ExitCode() {
		return true
	}
	combined := strings.ToLower(stdout + "\n" + stderr)
	for _, marker := range resourceLimitMarkers {
		if strings.Contains(combined, marker) {
			return true
		}
	}
	return false
}

func fallbackExitCode(exitCode, fallback int) int {
	if exitCode != 0 {
		return exitCode
	}
	return fallback
}
