package engine

import (
	"context"
	"time"
)

// Tickable is what Drive advances: a Session in production, a fake in tests.
type Tickable interface {
	Tick()
	Done() <-chan struct{}
	Close()
}

// Drive calls target.Tick once per elapsed interval until target is done or ctx is
// cancelled. A delayed ticker fire is caught up by ticking once for every whole interval
// that passed, so the countdown tracks wall time even when the scheduler jitters.
// Cancelling ctx closes target; no tick is delivered after Drive returns.
func Drive(ctx context.Context, interval time.Duration, target Tickable) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			target.Close()
			return
		case <-target.Done():
			return
		case now := <-ticker.C:
			n := int(now.Sub(last) / interval)
			if n < 1 {
				n = 1
			}
			last = last.Add(time.Duration(n) * interval)
			for i := 0; i < n; i++ {
				select {
				case <-target.Done():
					return
				default:
				}
				target.Tick()
			}
		}
	}
}
