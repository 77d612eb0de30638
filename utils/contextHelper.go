package utils

import "context"

type contextKey string

const (
	ContextKeyRunId contextKey = "run_id"
)

func SetRunIdInContext(ctx context.Context, runId string) context.Context {
	return context.WithValue(ctx, ContextKeyRunId, runId)
}

func GetRunIdFromContext(ctx context.Context) (string, bool) {
	runId, ok := ctx.Value(ContextKeyRunId).(string)
	return runId, ok
}
