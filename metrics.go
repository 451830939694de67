package gowait

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type wmetered struct {
	wtr      Waiter
	strategy string
	obs      *prometheus.HistogramVec
}

// NewWaiterMetered creates metered waiter instance
// that exposes wait durations of the underlying waiter
// as prometheus histogram labeled by strategy name and wait outcome.
// Waits started from a context stamped with `WithTimestamp`
// are measured from the stamping point instead of the wait start.
func NewWaiterMetered(wtr Waiter, strategy string, reg prometheus.Registerer) (wmetered, error) {
	obs := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gowait",
			Name:      "wait_duration_seconds",
			Help:      "Wall clock duration of waiter waits partitioned by strategy and outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.0, 16),
		},
		[]string{"strategy", "outcome"},
	)
	if err := reg.Register(obs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			obs = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return wmetered{}, err
		}
	}
	return wmetered{wtr: wtr, strategy: strategy, obs: obs}, nil
}

func (wtr wmetered) Wait(ctx context.Context, dur time.Duration) error {
	ts := time.Unix(0, ctxTimestamp(ctx)).UTC()
	err := wtr.wtr.Wait(ctx, dur)
	outcome := "ok"
	switch err.(type) {
	case nil:
	case ErrorCanceled:
		outcome = "canceled"
	case ErrorDuration:
		outcome = "invalid"
	default:
		outcome = "error"
	}
	wtr.obs.WithLabelValues(wtr.strategy, outcome).Observe(time.Now().UTC().Sub(ts).Seconds())
	return err
}
