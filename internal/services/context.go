package services

import "context"

type contextKey int

const (
	runIDKey contextKey = iota
	itemIDKey
	stageKey
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRunID tags ctx with the id of the batch run. Blank ids are ignored.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext returns the run id set by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, runIDKey) }

// WithItemID tags ctx with the icon being worked on.
func WithItemID(ctx context.Context, id string) context.Context {
	return withString(ctx, itemIDKey, id)
}

// ItemIDFromContext returns the id set by WithItemID.
func ItemIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, itemIDKey) }

// WithStage tags ctx with the pipeline step, e.g. "classify".
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the step set by WithStage.
func StageFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, stageKey) }
