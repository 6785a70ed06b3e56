package timer

import (
	"context"
	"time"
)

// DefaultTickInterval is the refresh rate of live elapsed labels.
const DefaultTickInterval = time.Second

// Ticker periodically re-evaluates display state. It never writes anything;
// callbacks are expected to recompute labels with Elapsed.
type Ticker struct {
	interval time.Duration
	clock    Clock
}

// NewTicker creates a Ticker. A non-positive interval falls back to one second.
func NewTicker(interval time.Duration, clock Clock) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ticker{interval: interval, clock: clock}
}

// Interval returns the tick period.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Run calls fn with the clock's time on every tick until ctx is done.
func (t *Ticker) Run(ctx context.Context, fn func(now time.Time)) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(t.clock.Now())
		}
	}
}
