// Package verdict defines the canonical JSON document the runner emits
// exactly once per submission, plus the truncation helpers every
// producer of that document shares.
package verdict

// Status is the closed set of top-level outcomes a verdict may carry.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusCompileError  Status = "compile_error"
	StatusTimedOut      Status = "timed_out"
	StatusRunnerError   Status = "runner_error"
	StatusResourceLimit Status = "resource_limit"
)

// Outcome is the closed set of pass/fail states for a run or a single test.
type Outcome string

const (
	OutcomePassed  Outcome = "Passed"
	OutcomeFailed  Outcome = "Failed"
	OutcomeSkipped Outcome = "Skipped"
	OutcomeUnknown Outcome = "Unknown"
)

// Counters mirrors the nine fixed result-summary counters the report
// carries, with "notExecuted" renamed to "skipped" at the boundary.
type Counters struct {
	Total        int `json:"total"`
	Executed     int `json:"executed"`
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	Error        int `json:"error"`
	Timeout      int `json:"timeout"`
	Aborted      int `json:"aborted"`
	Inconclusive int `json:"inconclusive"`
}

// Run summarizes the whole test-run, independent of any single test case.
type Run struct {
	TestRunID      string   `json:"testRunId"`
	OverallOutcome Outcome  `json:"overallOutcome"`
	CreatedAt      *string  `json:"createdAt"`
	StartedAt      *string  `json:"startedAt"`
	FinishedAt     *string  `json:"finishedAt"`
	DurationMs     int64    `json:"durationMs"`
	Counters       Counters `json:"counters"`
}

// Test is one test-case result, enriched with its defining class/FQN
// when that metadata was present in the report.
type Test struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	ClassName          *string `json:"className"`
	FullyQualifiedName *string `json:"fullyQualifiedName"`
	Outcome            Outcome `json:"outcome"`
	DurationMs         int64   `json:"durationMs"`
	StartedAt          *string `json:"startedAt"`
	FinishedAt         *string `json:"finishedAt"`
	Message            *string `json:"message"`
	StackTrace         *string `json:"stackTrace"`
}

// Diagnostics carries the free-form, non-schema-critical detail about
// how a verdict came to be: the trx path on a completed run, or the
// phase, exit code and captured output on a non-success path.
type Diagnostics struct {
	Stdout           string  `json:"stdout,omitempty"`
	StdoutTruncated  bool    `json:"stdoutTruncated,omitempty"`
	Stderr           string  `json:"stderr,omitempty"`
	StderrTruncated  bool    `json:"stderrTruncated,omitempty"`
	TrxPath          *string `json:"trxPath,omitempty"`
	Note             string  `json:"note,omitempty"`
	Phase            string  `json:"phase,omitempty"`
	ExitCode         *int    `json:"exitCode,omitempty"`
	TrxBytes         int64   `json:"trxBytes,omitempty"`
	MaxTrxBytes      int64   `json:"maxTrxBytes,omitempty"`
}

// Verdict is the canonical JSON document the runner always emits
// exactly one of, regardless of which pipeline state it ends in.
type Verdict struct {
	SubmissionID string       `json:"submissionId"`
	Status       Status       `json:"status"`
	Run          *Run         `json:"run,omitempty"`
	Tests        []Test       `json:"tests,omitempty"`
	Diagnostics  *Diagnostics `json:"diagnostics,omitempty"`
}
