package gowait

import (
	"context"
	"time"
)

// Runnable defined by typical abstract async func signature.
// Runnable is used by `Runner` as a subject for execution.
type Runnable func(context.Context) error

func nope(context.Context) error {
	return nil
}

func use(err error) Runnable {
	return func(ctx context.Context) error {
		return err
	}
}

func delayed(wtr Waiter, dur time.Duration, run Runnable) Runnable {
	return func(ctx context.Context) error {
		if err := wtr.Wait(ctx, ctxDuration(ctx, dur)); err != nil {
			return err
		}
		return run(ctx)
	}
}

func cached(cache time.Duration, run Runnable) Runnable {
	var ts time.Time
	return func(ctx context.Context) error {
		now := time.Now().UTC()
		if now.Sub(ts) > cache {
			if err := run(ctx); err != nil {
				return err
			}
			ts = now
		}
		return nil
	}
}

func memoized(run Runnable) (Runnable, Runnable) {
	var done bool
	memo := func(ctx context.Context) error {
		if done {
			return nil
		}
		if err := run(ctx); err != nil {
			return err
		}
		done = true
		return nil
	}
	reset := func(ctx context.Context) error {
		done = false
		return nil
	}
	return memo, reset
}

func retried(retries uint64, backoff time.Duration, run Runnable) Runnable {
	wtr := NewWaiterSleep()
	return func(ctx context.Context) (err error) {
		for i := uint64(0); i <= retries; i++ {
			err = run(ctx)
			if err == nil {
				return
			}
			if werr := wtr.Wait(ctx, backoff*time.Duration(i+1)); werr != nil {
				return werr
			}
		}
		return
	}
}
