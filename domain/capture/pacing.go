package capture

import (
	"context"
	"runtime"
	"time"
)

// clock abstracts time for the frame loop so tests can drive it.
type clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }
func (realClock) Sleep(d time.Duration)           { time.Sleep(d) }

// PacingMode selects how the frame loop waits out the rest of an interval.
type PacingMode string

const (
	// PacingHybrid sleeps for most of the interval and spins the remainder.
	PacingHybrid PacingMode = "hybrid"
	// PacingSleep only sleeps; cheapest, least precise.
	PacingSleep PacingMode = "sleep"
	// PacingSpin yields in a loop for the whole interval; highest precision.
	PacingSpin PacingMode = "spin"
)

// spinWindow is the tail of each interval the hybrid mode spins through,
// covering typical OS sleep overshoot.
const spinWindow = time.Millisecond

// pacer holds the frame loop to a target rate.
type pacer struct {
	interval time.Duration
	epsilon  time.Duration
	mode     PacingMode
	clock    clock
	yield    func()
	last     time.Time
	// slice bounds a single sleep so cancellation is noticed within it;
	// zero sleeps the whole remainder at once.
	slice time.Duration
}

// newPacer returns a pacer for fps frames per second; fps <= 0 disables
// pacing.
func newPacer(fps float64, mode PacingMode, c clock) *pacer {
	p := &pacer{mode: mode, clock: c, epsilon: spinWindow, yield: runtime.Gosched}
	if fps > 0 {
		p.interval = time.Duration(float64(time.Second) / fps)
	}
	return p
}

// Interval returns the target time between iterations.
func (p *pacer) Interval() time.Duration { return p.interval }

// wait blocks until one interval has passed since the previous wait returned.
// It returns false if ctx was cancelled first.
func (p *pacer) wait(ctx context.Context) bool {
	if p.interval <= 0 {
		return ctx.Err() == nil
	}
	if !p.last.IsZero() {
		deadline := p.last.Add(p.interval)
		remaining := p.interval - p.clock.Since(p.last)
		if remaining > 0 {
			ok := true
			switch p.mode {
			case PacingSleep:
				ok = p.sleep(ctx, remaining)
			case PacingSpin:
				ok = p.spinUntil(ctx, deadline)
			default:
				if remaining > p.epsilon {
					ok = p.sleep(ctx, remaining-p.epsilon)
				}
				ok = ok && p.spinUntil(ctx, deadline)
			}
			if !ok {
				return false
			}
		}
	}
	p.last = p.clock.Now()
	return ctx.Err() == nil
}

// sleep sleeps for d in chunks of at most p.slice.
func (p *pacer) sleep(ctx context.Context, d time.Duration) bool {
	for d > 0 {
		if ctx.Err() != nil {
			return false
		}
		step := d
		if p.slice > 0 && step > p.slice {
			step = p.slice
		}
		p.clock.Sleep(step)
		d -= step
	}
	return ctx.Err() == nil
}

func (p *pacer) spinUntil(ctx context.Context, deadline time.Time) bool {
	for p.clock.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		p.yield()
	}
	return true
}

// reset forgets the previous iteration so the next wait returns at once.
func (p *pacer) reset() { p.last = time.Time{} }
