package verdict

import appErr "github.com/ntpoppe/tracepoint/pkg/errors"

// Builder constructs the non-success verdict skeletons the runner emits
// when the pipeline does not end in a converted report.
type Builder struct {
	FieldCapChars int
}

// NewBuilder returns a Builder with the given per-field truncation cap.
func NewBuilder(fieldCapChars int) *Builder {
	if fieldCapChars <= 0 {
		fieldCapChars = 16000
	}
	return &Builder{FieldCapChars: fieldCapChars}
}

// Timeout builds the minimal verdict for a phase that exceeded its
// wall-clock deadline.
func (b *Builder) Timeout(submissionID string) (Verdict, int) {
	return Verdict{SubmissionID: submissionID, Status: StatusTimedOut}, appErr.PhaseTimeout.ExitCode()
}

// ResourceLimitProcess builds the verdict for a process-level resource
// limit hit detected via the exit-code/output heuristic.
func (b *Builder) ResourceLimitProcess(submissionID, note string, stdout, stderr string, stdoutTruncated, stderrTruncated bool, exitCode int) (Verdict, int) {
	code := exitCode
	if code == 0 {
		code = appErr.ResourceLimitHit.ExitCode()
	}
	diag := &Diagnostics{
		Note:            note,
		Stdout:          TruncateField(stdout, b.FieldCapChars),
		StdoutTruncated: stdoutTruncated,
		Stderr:          TruncateField(stderr, b.FieldCapChars),
		StderrTruncated: stderrTruncated,
		ExitCode:        &exitCode,
	}
	return Verdict{SubmissionID: submissionID, Status: StatusResourceLimit, Diagnostics: diag}, code
}

// ResourceLimitArtifact builds the verdict for a test-report artifact
// that exceeded the size cap.
func (b *Builder) ResourceLimitArtifact(submissionID string, trxBytes, maxTrxBytes int64, exitCode int) (Verdict, int) {
	code := exitCode
	if code == 0 {
		code = appErr.ArtifactTooLarge.ExitCode()
	}
	diag := &Diagnostics{
		Note:        "test report artifact exceeds maximum size",
		TrxBytes:    trxBytes,
		MaxTrxBytes: maxTrxBytes,
		ExitCode:    &exitCode,
	}
	return Verdict{SubmissionID: submissionID, Status: StatusResourceLimit, Diagnostics: diag}, code
}

// RunnerError builds the verdict for a pipeline failure that is neither
// a timeout nor a resource limit: workspace init failure, a failed
// restore, a missing artifact, or a report parse failure.
func (b *Builder) RunnerError(submissionID, phase string, exitCode, overrideExitCode int, stdout, stderr string, stdoutTruncated, stderrTruncated bool) (Verdict, int) {
	code := exitCode
	if overrideExitCode != 0 {
		code = overrideExitCode
	}
	diag := &Diagnostics{
		Phase:           phase,
		ExitCode:        &exitCode,
		Stdout:          TruncateField(stdout, b.FieldCapChars),
		StdoutTruncated: stdoutTruncated,
		Stderr:          TruncateField(stderr, b.FieldCapChars),
		StderrTruncated: stderrTruncated,
	}
	return Verdict{SubmissionID: submissionID, Status: StatusRunnerError, Diagnostics: diag}, code
}
