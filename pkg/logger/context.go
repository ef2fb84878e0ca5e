package logger

import "context"

type contextKey string

const (
	submissionIDKey contextKey = "submission_id"
	phaseKey        contextKey = "phase"
)

// WithSubmissionID returns a context tagged with the given submission id,
// picked up by every log call made against it.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionIDKey, id)
}

// WithPhase returns a context tagged with the pipeline phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey, phase)
}
