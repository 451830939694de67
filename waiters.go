package gowait

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSpinBurn defines default amount of iterations
// coarse spin waiter burns between consecutive clock checks.
var DefaultSpinBurn uint64 = 1000000

// DefaultTickerGranularity defines default polling granularity
// used by ticker waiter if none was provided.
var DefaultTickerGranularity = time.Millisecond

type walarm struct{}

// NewWaiterAlarm creates alarm waiter instance
// that schedules single asynchronous timer notification
// and blocks the caller on a condition variable until the notification fires.
// Zero duration notification is allowed to fire before the wait begins.
func NewWaiterAlarm() walarm {
	return walarm{}
}

func (wtr walarm) Wait(ctx context.Context, dur time.Duration) error {
	if dur < 0 {
		return ErrorDuration{Strategy: "alarm", Duration: dur}
	}
	ts := time.Now()
	var lock sync.Mutex
	cond := sync.NewCond(&lock)
	var fired bool
	alarm := time.AfterFunc(dur, func() {
		lock.Lock()
		fired = true
		lock.Unlock()
		cond.Broadcast()
	})
	defer alarm.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// lock round trip guarantees the waiter is either parked
			// inside cond wait or will observe ctx error before parking.
			lock.Lock()
			lock.Unlock()
			cond.Broadcast()
		case <-done:
		}
	}()
	lock.Lock()
	defer lock.Unlock()
	for !fired {
		if err := ctx.Err(); err != nil {
			return ErrorCanceled{Strategy: "alarm", Elapsed: time.Since(ts), Reason: err}
		}
		cond.Wait()
	}
	return nil
}

type wsleep struct{}

// NewWaiterSleep creates sleep waiter instance
// that blocks the caller on single timer channel receive.
func NewWaiterSleep() wsleep {
	return wsleep{}
}

func (wtr wsleep) Wait(ctx context.Context, dur time.Duration) error {
	if dur < 0 {
		return ErrorDuration{Strategy: "sleep", Duration: dur}
	}
	ts := time.Now()
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ErrorCanceled{Strategy: "sleep", Elapsed: time.Since(ts), Reason: ctx.Err()}
	}
}

type wspin struct{}

// NewWaiterSpin creates spin waiter instance
// that busy loops on monotonic clock checks until the duration elapses.
// Spin waiter burns a full CPU core and only exists as a benchmark subject.
func NewWaiterSpin() wspin {
	return wspin{}
}

func (wtr wspin) Wait(ctx context.Context, dur time.Duration) error {
	if dur < 0 {
		return ErrorDuration{Strategy: "spin", Duration: dur}
	}
	ts := time.Now()
	for time.Since(ts) < dur {
		if err := ctx.Err(); err != nil {
			return ErrorCanceled{Strategy: "spin", Elapsed: time.Since(ts), Reason: err}
		}
	}
	return nil
}

// spinsink keeps coarse spin burn loops observable
// so they don't get eliminated as dead code.
var spinsink uint64

type wcoarse struct {
	burn uint64
}

// NewWaiterSpinCoarse creates coarse spin waiter instance
// that burns the provided amount of iterations between clock checks,
// sampling the clock coarsely instead of on every loop pass.
// Coarse spin waiter burns a full CPU core and only exists as a benchmark subject.
func NewWaiterSpinCoarse(burn uint64) wcoarse {
	if burn == 0 {
		burn = DefaultSpinBurn
	}
	return wcoarse{burn: burn}
}

func (wtr wcoarse) Wait(ctx context.Context, dur time.Duration) error {
	if dur < 0 {
		return ErrorDuration{Strategy: "coarse", Duration: dur}
	}
	ts := time.Now()
	var acc uint64
	for time.Since(ts) < dur {
		for i := uint64(0); i < wtr.burn; i++ {
			acc++
		}
		atomic.StoreUint64(&spinsink, acc)
		if err := ctx.Err(); err != nil {
			return ErrorCanceled{Strategy: "coarse", Elapsed: time.Since(ts), Reason: err}
		}
	}
	return nil
}

type wticker struct {
	granularity time.Duration
}

// NewWaiterTicker creates ticker waiter instance
// that polls ticker channel with the provided granularity
// until the duration elapses.
func NewWaiterTicker(granularity time.Duration) wticker {
	if granularity <= 0 {
		granularity = DefaultTickerGranularity
	}
	return wticker{granularity: granularity}
}

func (wtr wticker) Wait(ctx context.Context, dur time.Duration) error {
	if dur < 0 {
		return ErrorDuration{Strategy: "ticker", Duration: dur}
	}
	ts := time.Now()
	tick := time.NewTicker(wtr.granularity)
	defer tick.Stop()
	for time.Since(ts) < dur {
		select {
		case <-tick.C:
		case <-ctx.Done():
			return ErrorCanceled{Strategy: "ticker", Elapsed: time.Since(ts), Reason: ctx.Err()}
		}
	}
	return nil
}

type wjitter struct {
	wtr      Waiter
	fraction float64
}

// NewWaiterJitter creates jitter waiter instance
// that extends every wait duration by a random jitter
// up to the provided fraction of the duration.
func NewWaiterJitter(wtr Waiter, fraction float64) wjitter {
	return wjitter{wtr: wtr, fraction: fraction}
}

func (wtr wjitter) Wait(ctx context.Context, dur time.Duration) error {
	jitter := time.Duration(float64(dur) * wtr.fraction * rndf64(0.5))
	return wtr.wtr.Wait(ctx, dur+jitter)
}

// Strategies returns registry of all built in waiter factories
// keyed by waiter strategy name.
func Strategies() map[string]NewWaiter {
	return map[string]NewWaiter{
		"alarm":  func() Waiter { return NewWaiterAlarm() },
		"sleep":  func() Waiter { return NewWaiterSleep() },
		"spin":   func() Waiter { return NewWaiterSpin() },
		"coarse": func() Waiter { return NewWaiterSpinCoarse(0) },
		"ticker": func() Waiter { return NewWaiterTicker(0) },
	}
}
