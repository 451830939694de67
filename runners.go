package gowait

import (
	"context"
	"sync"
)

// Runner defines abstract execution interface
// that executes provided runnables delayed by the underlying waiter
// and collects the first execution error happened.
type Runner interface {
	Run(Runnable)
	Result() error
}

type rsync struct {
	wtr Waiter
	ctx context.Context
	err error
	rep func(error)
}

// NewRunnerSync creates synchronous runner instance
// that runs each provided runnable in the calling goroutine
// after waiting out the duration carried by the context.
func NewRunnerSync(ctx context.Context, wtr Waiter) Runner {
	ctx, cancel := context.WithCancel(ctx)
	r := rsync{wtr: wtr, ctx: ctx}
	var once sync.Once
	r.rep = func(err error) {
		if err != nil {
			once.Do(func() {
				r.err = err
				cancel()
			})
		}
	}
	return &r
}

func (r *rsync) Run(run Runnable) {
	select {
	case <-r.ctx.Done():
		r.rep(r.ctx.Err())
		return
	default:
	}
	r.rep(delayed(r.wtr, 0, run)(WithTimestamp(r.ctx)))
}

func (r *rsync) Result() error {
	return r.err
}

type rasync struct {
	wtr Waiter
	ctx context.Context
	wg  sync.WaitGroup
	err error
	rep func(error)
}

// NewRunnerAsync creates asynchronous runner instance
// that runs each provided runnable in a separate goroutine
// after waiting out the duration carried by the context.
func NewRunnerAsync(ctx context.Context, wtr Waiter) Runner {
	ctx, cancel := context.WithCancel(ctx)
	r := rasync{wtr: wtr, ctx: ctx}
	var once sync.Once
	r.rep = func(err error) {
		if err != nil {
			once.Do(func() {
				r.err = err
				cancel()
			})
		}
	}
	return &r
}

func (r *rasync) Run(run Runnable) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case <-r.ctx.Done():
			r.rep(r.ctx.Err())
			return
		default:
		}
		r.rep(delayed(r.wtr, 0, run)(WithTimestamp(r.ctx)))
	}()
}

func (r *rasync) Result() error {
	r.wg.Wait()
	return r.err
}
