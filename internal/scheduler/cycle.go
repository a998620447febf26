package scheduler

import (
	"context"
	"time"
)

// Cycle runs a function immediately and then again each time a full
// interval has passed since the previous run finished.
type Cycle struct {
	interval time.Duration
}

func NewCycle(interval time.Duration) *Cycle {
	return &Cycle{interval: interval}
}

// Run blocks until ctx is cancelled.
func (c *Cycle) Run(ctx context.Context, fn func(ctx context.Context)) error {
	for {
		fn(ctx)

		timer := time.NewTimer(c.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
