package gowait

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	table := map[string]struct {
		ctx      context.Context
		fallback time.Duration
		dur      time.Duration
	}{
		"Context duration should fall back if not set": {
			ctx:      context.Background(),
			fallback: time.Second,
			dur:      time.Second,
		},
		"Context duration should override the fallback": {
			ctx:      WithDuration(context.Background(), time.Minute),
			fallback: time.Second,
			dur:      time.Minute,
		},
		"Context duration should allow zero override": {
			ctx:      WithDuration(context.Background(), 0),
			fallback: time.Second,
			dur:      0,
		},
		"Context duration should ignore negative override": {
			ctx:      WithDuration(context.Background(), -time.Minute),
			fallback: time.Second,
			dur:      time.Second,
		},
	}
	for tname, tcase := range table {
		t.Run(tname, func(t *testing.T) {
			assert.Equal(t, tcase.dur, ctxDuration(tcase.ctx, tcase.fallback))
		})
	}
}

func TestContextTimestamp(t *testing.T) {
	now := time.Now().UTC().UnixNano()
	stamped := ctxTimestamp(WithTimestamp(context.Background()))
	assert.GreaterOrEqual(t, stamped, now)
	unstamped := ctxTimestamp(context.Background())
	assert.GreaterOrEqual(t, unstamped, stamped)
}
