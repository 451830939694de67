package gowait

import (
	"context"
	"math"
	"sort"
	"time"
)

// Report defines single strategy bench result
// with order and moment statistics over measured wait durations,
// wait accuracy against the requested duration
// and process CPU time attributed to the strategy runs.
type Report struct {
	Strategy  string        `json:"strategy"`
	Requested time.Duration `json:"requested"`
	Runs      int           `json:"runs"`
	Mean      time.Duration `json:"mean"`
	Stddev    time.Duration `json:"stddev"`
	Min       time.Duration `json:"min"`
	Max       time.Duration `json:"max"`
	P50       time.Duration `json:"p50"`
	P90       time.Duration `json:"p90"`
	P99       time.Duration `json:"p99"`
	Accuracy  float64       `json:"accuracy"`
	CPUUser   float64       `json:"cpu_user"`
	CPUSystem float64       `json:"cpu_system"`
	Errors    int           `json:"errors"`
}

type bench struct {
	strategies map[string]NewWaiter
	dur        time.Duration
	runs       int
	mnt        Monitor
}

// NewBench creates bench harness instance
// that measures every provided waiter strategy
// over the requested amount of runs of the requested duration.
func NewBench(strategies map[string]NewWaiter, dur time.Duration, runs int) *bench {
	if runs <= 0 {
		runs = 1
	}
	return &bench{
		strategies: strategies,
		dur:        dur,
		runs:       runs,
		mnt:        NewMonitor(0),
	}
}

// Run executes the bench and returns one report per strategy
// ordered by strategy name, or internal error if any run was interrupted.
func (b *bench) Run(ctx context.Context) ([]Report, error) {
	names := make([]string, 0, len(b.strategies))
	for name := range b.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	reports := make([]Report, 0, len(names))
	for _, name := range names {
		report, err := b.run(ctx, name, b.strategies[name]())
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (b *bench) run(ctx context.Context, name string, wtr Waiter) (Report, error) {
	report := Report{Strategy: name, Requested: b.dur, Runs: b.runs}
	smp := newSamples(uint32(b.runs))
	before, berr := b.mnt.Stats(ctx)
	for i := 0; i < b.runs; i++ {
		ts := time.Now()
		if err := wtr.Wait(ctx, b.dur); err != nil {
			if _, ok := err.(ErrorCanceled); ok {
				return report, err
			}
			report.Errors++
			continue
		}
		smp.Push(uint64(time.Since(ts)))
	}
	after, aerr := b.mnt.Stats(ctx)
	if berr == nil && aerr == nil {
		report.CPUUser = after.CPUUser - before.CPUUser
		report.CPUSystem = after.CPUSystem - before.CPUSystem
	}
	if smp.Len() == 0 {
		return report, nil
	}
	report.Mean = time.Duration(smp.Mean())
	report.Stddev = time.Duration(smp.Stddev())
	report.Min = time.Duration(smp.Min())
	report.Max = time.Duration(smp.Max())
	report.P50 = time.Duration(smp.At(0.5))
	report.P90 = time.Duration(smp.At(0.9))
	report.P99 = time.Duration(smp.At(0.99))
	if b.dur > 0 {
		drift := math.Abs(smp.Mean()-float64(b.dur)) / float64(b.dur) * 100
		report.Accuracy = 100.0 - drift
	}
	return report, nil
}
