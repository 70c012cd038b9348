// SPDX-License-Identifier: MPL-2.0

// Package clock abstracts wall-clock access so pipeline timestamps and
// engine run durations can be pinned in tests.
package clock

import (
	"sync"
	"time"
)

// StampLayout is the layout of the timestamp prefixed to pipeline log lines.
const StampLayout = "2006-01-02 15:04:05"

type (
	// Clock is the time source used by the pipeline and the engine builder.
	Clock interface {
		Now() time.Time
		// After delivers the clock's time once d has elapsed.
		After(d time.Duration) <-chan time.Time
		Since(t time.Time) time.Duration
	}

	// Real reads the system clock.
	Real struct{}

	// Fake only moves when Advance or Set is called.
	Fake struct {
		mu      sync.Mutex
		now     time.Time
		pending []timer
	}

	timer struct {
		due time.Time
		ch  chan time.Time
	}
)

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// After wraps time.After.
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Since wraps time.Since.
func (Real) Since(t time.Time) time.Duration { return time.Since(t) }

// Stamp formats the current time of c as a bracketed log prefix,
// e.g. "[2024-05-01 13:37:00]".
func Stamp(c Clock) string {
	return "[" + c.Now().Format(StampLayout) + "]"
}

// NewFake returns a Fake set to start. A zero start pins the clock to
// 2020-01-01 00:00:00 UTC.
func NewFake(start time.Time) *Fake {
	if start.IsZero() {
		start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Fake{now: start}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After returns a channel that fires once the fake time reaches now+d.
// Non-positive durations fire immediately.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.pending = append(f.pending, timer{due: f.now.Add(d), ch: ch})
	return ch
}

// Since returns the fake time elapsed since t.
func (f *Fake) Since(t time.Time) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Sub(t)
}

// Advance moves the fake time forward by d and fires due timers.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.fire()
}

// Set moves the fake time to t and fires due timers.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
	f.fire()
}

// fire must be called with mu held.
func (f *Fake) fire() {
	keep := f.pending[:0]
	for _, t := range f.pending {
		if f.now.Before(t.due) {
			keep = append(keep, t)
			continue
		}
		select {
		case t.ch <- f.now:
		default:
		}
	}
	f.pending = keep
}
