package gowait

import (
	"context"
	"time"
)

const (
	gowaitctxduration  = "gowait_context_duration"
	gowaitctxtimestamp = "gowait_context_timestamp"
)

// WithDuration adds the provided wait duration to the context
// to be used later to override waiter or middleware preset duration.
func WithDuration(ctx context.Context, dur time.Duration) context.Context {
	return context.WithValue(ctx, gowaitctxduration, dur)
}

func ctxDuration(ctx context.Context, fallback time.Duration) time.Duration {
	if val := ctx.Value(gowaitctxduration); val != nil {
		if dur, ok := val.(time.Duration); ok && dur >= 0 {
			return dur
		}
	}
	return fallback
}

// withDurationFallback keeps duration already carried by the context
// and only falls back to the provided preset otherwise.
func withDurationFallback(ctx context.Context, fallback time.Duration) context.Context {
	return WithDuration(ctx, ctxDuration(ctx, fallback))
}

// WithTimestamp adds the current timestamp to the context
// to be used later to measure time spent between stamping and waiting.
func WithTimestamp(ctx context.Context) context.Context {
	return context.WithValue(ctx, gowaitctxtimestamp, time.Now().UTC().UnixNano())
}

func ctxTimestamp(ctx context.Context) int64 {
	if val := ctx.Value(gowaitctxtimestamp); val != nil {
		if timestamp, ok := val.(int64); ok {
			return timestamp
		}
	}
	return time.Now().UTC().UnixNano()
}
