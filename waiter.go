package gowait

import (
	"context"
	"time"
)

// Waiter defines main blocking wait interface
// implemented by all derived waiting strategies.
// Wait blocks the calling goroutine for approximately
// the provided duration and then returns nil,
// or returns internal error if wait was interrupted.
type Waiter interface {
	Wait(context.Context, time.Duration) error
}

// NewWaiter defines waiter factory abstraction
// used by strategy registries and composite waiters.
type NewWaiter func() Waiter

// Delay blocks the calling goroutine for the provided number of seconds
// using the default alarm waiter and then returns control to the caller.
// Negative seconds are rejected with `ErrorDuration` error.
func Delay(ctx context.Context, seconds int) error {
	if seconds < 0 {
		return ErrorDuration{Strategy: "alarm", Duration: time.Duration(seconds) * time.Second}
	}
	return NewWaiterAlarm().Wait(ctx, time.Duration(seconds)*time.Second)
}
