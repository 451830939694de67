package gowait

import (
	"fmt"
	"time"
)

// ErrorDuration defines error type
// that occurs if waiter receives invalid wait duration.
type ErrorDuration struct {
	Strategy string
	Duration time.Duration
}

func (err ErrorDuration) Error() string {
	return fmt.Sprintf(
		"waiter %q can't wait for invalid duration %s",
		err.Strategy,
		err.Duration,
	)
}

// ErrorCanceled defines error type
// that occurs if waiter context is canceled before wait duration elapses.
type ErrorCanceled struct {
	Strategy string
	Elapsed  time.Duration
	Reason   error
}

func (err ErrorCanceled) Error() string {
	return fmt.Sprintf(
		"waiter %q has been canceled after %s: %v",
		err.Strategy,
		err.Elapsed,
		err.Reason,
	)
}

func (err ErrorCanceled) Unwrap() error {
	return err.Reason
}

// ErrorInternal defines error type
// that occurs if waiter internal error happens.
type ErrorInternal struct {
	Strategy string
	Message  string
}

func (err ErrorInternal) Error() string {
	return fmt.Sprintf(
		"waiter %q internal error happened: %s",
		err.Strategy,
		err.Message,
	)
}
