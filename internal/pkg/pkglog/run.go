package pkglog

import "context"

type runIDContextKey struct{}

// GetRunID returns the transfer run ID stored in the context, or "" when the
// work is not tied to a run.
func GetRunID(ctx context.Context) string {
	runID, ok := ctx.Value(runIDContextKey{}).(string)
	if !ok {
		return ""
	}
	return runID
}

// SetRunID stores a transfer run ID into the context so every log line emitted
// while processing that run carries it.
func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey{}, runID)
}
