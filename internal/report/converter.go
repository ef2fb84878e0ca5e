package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ntpoppe/tracepoint/internal/idgen"
	"github.com/ntpoppe/tracepoint/internal/verdict"
	appErr "github.com/ntpoppe/tracepoint/pkg/errors"
)

// Converter turns a TRX artifact on disk into a canonical verdict
// document.
type Converter struct {
	FieldCapChars int
}

// NewConverter returns a Converter with the given per-field truncation cap.
func NewConverter(fieldCapChars int) *Converter {
	if fieldCapChars <= 0 {
		fieldCapChars = 16000
	}
	return &Converter{FieldCapChars: fieldCapChars}
}

// Overrides carries the stderr/note detail to record on the verdict
// when no TRX artifact could be read.
type Overrides struct {
	Stderr string
	Note   string
}

// Convert builds the canonical verdict for submissionID. statusToken is
// normalized to the closed status set, collapsing anything unrecognized
// to "completed". If path does not name a readable TRX file, the
// returned verdict carries an empty run skeleton (outcome Unknown,
// counters zero), no tests, a null trxPath, and overrides recorded on
// diagnostics. A present-but-malformed artifact is reported as an error
// instead, since that is the caller's cue to emit a trx_parse
// runner-error rather than a bare skeleton.
func (c *Converter) Convert(submissionID, statusToken, path string, overrides Overrides) (verdict.Verdict, error) {
	status := normalizeStatus(statusToken)

	data, err := os.ReadFile(path)
	if err != nil {
		return c.notFoundSkeleton(submissionID, status, overrides), nil
	}

	doc, err := decodeTRX(data)
	if err != nil {
		return verdict.Verdict{}, appErr.Wrapf(err, appErr.ReportParseFailed, "parse trx xml: %v", err)
	}

	run := c.buildRun(doc)
	tests := c.buildTests(doc)
	return verdict.Verdict{
		SubmissionID: submissionID,
		Status:       status,
		Run:          &run,
		Tests:        tests,
		Diagnostics:  &verdict.Diagnostics{TrxPath: strPtr(filepath.Clean(path))},
	}, nil
}

// notFoundSkeleton builds the minimal verdict §4.4 documents for a
// missing artifact: an empty run, no tests, and a null trxPath.
func (c *Converter) notFoundSkeleton(submissionID string, status verdict.Status, overrides Overrides) verdict.Verdict {
	run := verdict.Run{OverallOutcome: verdict.OutcomeUnknown}
	v := verdict.Verdict{
		SubmissionID: submissionID,
		Status:       status,
		Run:          &run,
		Tests:        []verdict.Test{},
	}
	if overrides.Stderr != "" || overrides.Note != "" {
		v.Diagnostics = &verdict.Diagnostics{
			Stderr: verdict.TruncateField(overrides.Stderr, c.FieldCapChars),
			Note:   verdict.TruncateField(overrides.Note, c.FieldCapChars),
		}
	}
	return v
}

// normalizeStatus lowercases and validates token against the closed
// status set; anything unrecognized collapses to completed.
func normalizeStatus(token string) verdict.Status {
	normalized := verdict.Status(strings.ToLower(strings.TrimSpace(token)))
	switch normalized {
	case verdict.StatusCompleted, verdict.StatusCompileError, verdict.StatusTimedOut,
		verdict.StatusRunnerError, verdict.StatusResourceLimit:
		return normalized
	default:
		return verdict.StatusCompleted
	}
}

func strPtr(s string) *string { return &s }

func (c *Converter) buildRun(doc trxDocument) verdict.Run {
	created := parseTimestamp(doc.Times.Creation)
	started := parseTimestamp(doc.Times.Start)
	finished := parseTimestamp(doc.Times.Finish)

	return verdict.Run{
		TestRunID:      doc.ID,
		OverallOutcome: remapOutcome(doc.ResultSummary.Outcome),
		CreatedAt:      created,
		StartedAt:      started,
		FinishedAt:     finished,
		DurationMs:     durationBetween(doc.Times.Start, doc.Times.Finish),
		Counters:       remapCounters(doc.ResultSummary.Counters),
	}
}

func (c *Converter) buildTests(doc trxDocument) []verdict.Test {
	definitions := make(map[string]trxTestMethod, len(doc.TestDefinitions))
	for _, def := range doc.TestDefinitions {
		definitions[def.ID] = def.TestMethod
	}

	tests := make([]verdict.Test, 0, len(doc.Results))
	for _, r := range doc.Results {
		tests = append(tests, c.buildTest(r, definitions))
	}
	return tests
}

func (c *Converter) buildTest(r trxResult, definitions map[string]trxTestMethod) verdict.Test {
	id := r.ExecutionID
	if id == "" {
		id = r.TestID
	}
	if id == "" {
		id = idgen.NewOpaqueID()
	}

	var className, fqn *string
	if def, ok := definitions[r.TestID]; ok {
		if def.ClassName != "" {
			v := def.ClassName
			className = &v
		}
		if def.Name != "" && def.ClassName != "" {
			v := fmt.Sprintf("%s.%s", def.ClassName, def.Name)
			fqn = &v
		}
	}

	return verdict.Test{
		ID:                 id,
		Name:               r.TestName,
		ClassName:          className,
		FullyQualifiedName: fqn,
		Outcome:            remapOutcome(r.Outcome),
		DurationMs:         parseDurationMs(r.Duration),
		StartedAt:          parseTimestamp(r.StartTime),
		FinishedAt:         parseTimestamp(r.EndTime),
		Message:            verdict.NullableString(r.Output.ErrorInfo.Message, c.FieldCapChars),
		StackTrace:         verdict.NullableString(r.Output.ErrorInfo.StackTrace, c.FieldCapChars),
	}
}

// remapOutcome applies the schema's outcome law: NotExecuted folds into
// Skipped, Timeout folds into Failed, anything unrecognized is Unknown.
func remapOutcome(source string) verdict.Outcome {
	switch source {
	case "Passed":
		return verdict.OutcomePassed
	case "Failed", "Timeout":
		return verdict.OutcomeFailed
	case "Skipped", "NotExecuted":
		return verdict.OutcomeSkipped
	default:
		return verdict.OutcomeUnknown
	}
}

// remapCounters applies the schema's counter-rename law: notExecuted
// becomes skipped in the output.
func remapCounters(c trxCounters) verdict.Counters {
	return verdict.Counters{
		Total:        c.Total,
		Executed:     c.Executed,
		Passed:       c.Passed,
		Failed:       c.Failed,
		Skipped:      c.NotExecuted,
		Error:        c.Error,
		Timeout:      c.Timeout,
		Aborted:      c.Aborted,
		Inconclusive: c.Inconclusive,
	}
}

// parseDurationMs parses a TRX duration of form "HH:MM:SS.fffffff" and
// rounds it to whole milliseconds; an unparseable value yields 0.
func parseDurationMs(s string) int64 {
	if s == "" {
		return 0
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return 0
	}
	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0
	}
	totalSeconds := float64(hours*3600+minutes*60) + seconds
	return int64(totalSeconds*1000 + 0.5)
}

// durationBetween returns the millisecond gap between two TRX
// timestamps, clamped to zero if either fails to parse or the end
// precedes the start.
func durationBetween(start, finish string) int64 {
	s, sok := parseTime(start)
	f, fok := parseTime(finish)
	if !sok || !fok {
		return 0
	}
	delta := f.Sub(s).Milliseconds()
	if delta < 0 {
		return 0
	}
	return delta
}

// parseTimestamp parses a TRX round-trip timestamp and re-emits it in
// round-trip ISO-8601 form, or nil if it cannot be parsed.
func parseTimestamp(s string) *string {
	t, ok := parseTime(s)
	if !ok {
		return nil
	}
	out := t.Format(time.RFC3339Nano)
	return &out
}

func parseTime(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
