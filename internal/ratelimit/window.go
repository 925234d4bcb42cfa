// Package ratelimit implements the per-source sliding-window limiter that
// gates every outgoing request against a source's requests-per-minute budget.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window tracks, per source, the timestamps of granted acquisitions inside a
// trailing window (one minute in production). Acquire blocks until granting
// another request would not exceed the source's budget. It never fails
// except on context cancellation.
type Window struct {
	mu      sync.Mutex
	budgets map[string]int
	grants  map[string][]time.Time
	span    time.Duration
	now     func() time.Time
}

// Option configures a Window.
type Option func(*Window)

// WithSpan overrides the trailing window duration. Tests use this to
// compress the window.
func WithSpan(d time.Duration) Option {
	return func(w *Window) { w.span = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

// NewWindow creates a limiter with per-source budgets (requests per window).
// Sources missing from budgets are not limited.
func NewWindow(budgets map[string]int, opts ...Option) *Window {
	w := &Window{
		budgets: budgets,
		grants:  make(map[string][]time.Time),
		span:    time.Minute,
		now:     time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Acquire blocks until the source's window has room, then records the grant.
// Waiters are released in the order their wait began.
func (w *Window) Acquire(ctx context.Context, sourceName string) error {
	for {
		wait, ok := w.tryAcquire(sourceName)
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire grants immediately when the window has room. Otherwise it
// returns how long until the oldest grant ages out.
func (w *Window) tryAcquire(sourceName string) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	budget, limited := w.budgets[sourceName]
	if !limited || budget <= 0 {
		return 0, true
	}

	now := w.now()
	cutoff := now.Add(-w.span)

	grants := w.grants[sourceName]
	for len(grants) > 0 && !grants[0].After(cutoff) {
		grants = grants[1:]
	}

	if len(grants) < budget {
		grants = append(grants, now)
		w.grants[sourceName] = grants
		return 0, true
	}

	w.grants[sourceName] = grants
	return grants[0].Sub(cutoff), false
}

// Granted returns the number of grants currently inside the source's window.
func (w *Window) Granted(sourceName string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.span)
	var n int
	for _, t := range w.grants[sourceName] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
