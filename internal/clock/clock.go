package clock

import (
	"sync"
	"time"
)

// Clock is a single cancellable countdown plus a time source.
// It is the only place the quiz engine reads wall-clock time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Arm starts a countdown of d. onTimeout runs at most once, unless Cancel
	// or another Arm wins first. Arming replaces any pending countdown.
	Arm(d time.Duration, onTimeout func())
	// Cancel stops the countdown and returns the time that was left.
	// Returns 0 when nothing is armed or the countdown already fired.
	Cancel() time.Duration
	// Remaining reports the time left without stopping the countdown.
	Remaining() time.Duration
}

// Real is a Clock backed by time.AfterFunc.
type Real struct {
	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	gen      uint64
	armed    bool
}

var _ Clock = (*Real)(nil)

// NewReal creates a wall-clock countdown.
func NewReal() *Real {
	return &Real{}
}

func (c *Real) Now() time.Time {
	return time.Now()
}

func (c *Real) Arm(d time.Duration, onTimeout func()) {
	if d < 0 {
		d = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	gen := c.gen
	c.armed = true
	c.deadline = time.Now().Add(d)
	c.timer = time.AfterFunc(d, func() {
		// Claim the firing under the lock so a concurrent Cancel sees it.
		c.mu.Lock()
		if !c.armed || c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.armed = false
		c.mu.Unlock()

		onTimeout()
	})
}

func (c *Real) Cancel() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return 0
	}
	remaining := c.remainingLocked()
	c.stopLocked()
	return remaining
}

func (c *Real) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return 0
	}
	return c.remainingLocked()
}

func (c *Real) remainingLocked() time.Duration {
	left := time.Until(c.deadline)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Real) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.armed = false
}
