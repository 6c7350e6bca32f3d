// Package clock holds the fixed-delay wait used by every polling loop.
package clock

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// Or returns fn, or Sleep when fn is nil.
func Or(fn SleepFunc) SleepFunc {
	if fn == nil {
		return Sleep
	}
	return fn
}

// Recorder is a SleepFunc that never blocks and records every requested delay.
// OnSleep, when set, runs after each call with the 1-based call number.
type Recorder struct {
	Delays  []time.Duration
	OnSleep func(n int)
}

// Sleep implements SleepFunc.
func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Delays = append(r.Delays, d)
	if r.OnSleep != nil {
		r.OnSleep(len(r.Delays))
	}
	return nil
}

// Total returns the sum of the recorded delays.
func (r *Recorder) Total() time.Duration {
	var sum time.Duration
	for _, d := range r.Delays {
		sum += d
	}
	return sum
}
