package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Latency decides how long a settlement takes between writing balances and
// appending the ledger entry.
type Latency interface {
	Next() time.Duration
}

// LatencyFunc adapts a plain function to Latency.
type LatencyFunc func() time.Duration

func (f LatencyFunc) Next() time.Duration { return f() }

// NoLatency settles immediately.
func NoLatency() Latency {
	return LatencyFunc(func() time.Duration { return 0 })
}

// FixedLatency always waits d.
func FixedLatency(d time.Duration) Latency {
	return LatencyFunc(func() time.Duration { return d })
}

// UniformLatency draws each wait uniformly from [min, max]. The source is
// seeded explicitly so runs can be reproduced.
func UniformLatency(min, max time.Duration, seed uint64) Latency {
	if max <= min {
		return FixedLatency(min)
	}
	u := &uniform{
		min:  min,
		span: int64(max-min) + 1,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	return u
}

type uniform struct {
	min  time.Duration
	span int64

	mu  sync.Mutex
	rng *rand.Rand
}

func (u *uniform) Next() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.min + time.Duration(u.rng.Int64N(u.span))
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
