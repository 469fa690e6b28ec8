package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests. Time only moves through Advance,
// and a due countdown fires synchronously on the goroutine calling Advance.
type Fake struct {
	mu        sync.Mutex
	now       time.Time
	deadline  time.Time
	onTimeout func()
	armed     bool
	lastArmed time.Duration
	arms      int
}

var _ Clock = (*Fake)(nil)

// NewFake returns a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Arm(d time.Duration, onTimeout func()) {
	if d < 0 {
		d = 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.armed = true
	f.deadline = f.now.Add(d)
	f.onTimeout = onTimeout
	f.lastArmed = d
	f.arms++
}

func (f *Fake) Cancel() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.armed {
		return 0
	}
	f.armed = false
	f.onTimeout = nil
	return f.remainingLocked()
}

func (f *Fake) Remaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.armed {
		return 0
	}
	return f.remainingLocked()
}

// Advance moves time forward by d and fires the countdown if it is due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	if !f.armed || f.now.Before(f.deadline) {
		f.mu.Unlock()
		return
	}
	fn := f.onTimeout
	f.armed = false
	f.onTimeout = nil
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// TakeTimeout moves time to the deadline and detaches the pending callback
// without running it, as if the timer fired but its delivery was delayed.
// The caller decides when to deliver it. Returns nil when nothing is armed.
func (f *Fake) TakeTimeout() func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.armed {
		return nil
	}
	if f.now.Before(f.deadline) {
		f.now = f.deadline
	}
	fn := f.onTimeout
	f.armed = false
	f.onTimeout = nil
	return fn
}

// Armed reports whether a countdown is pending.
func (f *Fake) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed
}

// LastArmed returns the duration passed to the most recent Arm.
func (f *Fake) LastArmed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastArmed
}

// ArmCount returns how many times Arm has been called.
func (f *Fake) ArmCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.arms
}

func (f *Fake) remainingLocked() time.Duration {
	left := f.deadline.Sub(f.now)
	if left < 0 {
		return 0
	}
	return left
}
