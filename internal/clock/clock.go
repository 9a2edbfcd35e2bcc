// Package clock abstracts wall-clock time and timers so the sampler,
// classifier, and history engine can be driven deterministically in tests.
//
// The host runtime spec.md describes (§5) provides two cooperative primitives
// this package stands in for: a wall-clock monotonic source (used for the
// ≥500ms stable-time gate and the debounce window) and a display-frame
// callback (used to drive the sampler loop at ~60Hz). Production code uses
// [Real]; tests use [*Fake] to advance time under full control, the same way
// the teacher's handlers_test.go style would have used a fake for
// deckHideTimer had it tested that path.
package clock

import (
	"sync"
	"time"
)

// Clock is the minimal surface the engine needs from a time source.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules f to run once after d elapses, and returns a
	// Timer that can be stopped or reset (cancel-and-rearm, per §4.4's
	// rapid-key handling requirement). f runs synchronously on the calling
	// goroutine in [Real] is NOT guaranteed — production code must treat
	// it as happening on its own goroutine; [*Fake] runs it inline from Advance.
	AfterFunc(d time.Duration, f func()) Timer
	// NewTicker returns a ticker firing every d, used to drive the
	// stable-time sampler's frame loop.
	NewTicker(d time.Duration) Ticker
}

// Timer is the cancel/reset surface the classifier needs. Mirrors
// time.Timer's Stop/Reset contract closely enough that [Real]'s
// implementation is a one-line wrapper.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Ticker delivers ticks on a channel until Stop is called.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the production Clock, backed directly by the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

func (Real) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool                { return r.t.Stop() }
func (r realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Fake is a deterministic Clock for tests. Time only advances when Advance
// is called; pending AfterFunc callbacks due at or before the new time run
// synchronously, earliest due time first (ties in the order they were
// scheduled), before Advance returns.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	tickers []*fakeTicker
}

// NewFake creates a Fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, cb func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{owner: f, due: f.now.Add(d), cb: cb, active: true}
	f.pending = append(f.pending, t)
	return t
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{owner: f, period: d, ch: make(chan time.Time, 1), next: f.now.Add(d)}
	f.tickers = append(f.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing due timers and tickers along
// the way in chronological order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		var due *fakeTimer
		dueIdx := -1
		for i, t := range f.pending {
			if !t.active || t.fired {
				continue
			}
			if !t.due.After(target) {
				if due == nil || t.due.Before(due.due) {
					due = t
					dueIdx = i
				}
			}
		}
		var dueTicker *fakeTicker
		for _, tk := range f.tickers {
			if !tk.stopped && !tk.next.After(target) {
				if dueTicker == nil || tk.next.Before(dueTicker.next) {
					dueTicker = tk
				}
			}
		}

		switch {
		case due != nil && (dueTicker == nil || due.due.Before(dueTicker.next) || due.due.Equal(dueTicker.next)):
			f.now = due.due
			due.fired = true
			f.pending = append(f.pending[:dueIdx], f.pending[dueIdx+1:]...)
			cb := due.cb
			f.mu.Unlock()
			if cb != nil {
				cb()
			}
			continue
		case dueTicker != nil:
			f.now = dueTicker.next
			fireAt := dueTicker.next
			dueTicker.next = dueTicker.next.Add(dueTicker.period)
			ch := dueTicker.ch
			f.mu.Unlock()
			select {
			case ch <- fireAt:
			default:
			}
			continue
		default:
			f.now = target
			f.mu.Unlock()
			return
		}
	}
}

type fakeTimer struct {
	owner  *Fake
	due    time.Time
	cb     func()
	active bool
	fired  bool
}

func (t *fakeTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	wasActive := t.active && !t.fired
	t.active = false
	return wasActive
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	wasActive := t.active && !t.fired
	t.active = true
	t.fired = false
	t.due = t.owner.now.Add(d)
	if !wasActive {
		t.owner.pending = append(t.owner.pending, t)
	}
	return wasActive
}

type fakeTicker struct {
	owner   *Fake
	period  time.Duration
	ch      chan time.Time
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	t.stopped = true
}
