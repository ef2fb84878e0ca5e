// Package idgen mints the opaque identifiers the pipeline threads
// through every workspace, container name, verdict, and test result.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// NewSubmissionID returns a 32-character lowercase hex identifier for a submission.
func NewSubmissionID() string {
	return NewOpaqueID()
}

// NewOpaqueID returns a 32-character lowercase hex identifier, used
// anywhere the schema requires a non-empty id but no natural one exists
// (e.g. a TRX result carrying neither an executionId nor a testId).
func NewOpaqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
