package action

import (
	"sync"
	"time"
)

// DefaultDeferDelay is long enough for a swipe gesture animation to
// settle before its action applies.
const DefaultDeferDelay = 300 * time.Millisecond

// Deferred schedules an action after a short fixed delay instead of
// applying it immediately. Scheduling a new action overwrites any still
// pending one: last write wins, no queue.
type Deferred struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	seq     uint64
	pending bool
}

// NewDeferred creates a runner with the given delay. A non-positive delay
// falls back to DefaultDeferDelay.
func NewDeferred(delay time.Duration) *Deferred {
	if delay <= 0 {
		delay = DefaultDeferDelay
	}
	return &Deferred{delay: delay}
}

// Schedule runs fn after the delay, discarding any pending scheduled fn.
func (d *Deferred) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		stale := seq != d.seq
		if !stale {
			d.pending = false
		}
		d.mu.Unlock()
		if !stale {
			fn()
		}
	})
}

// Pending reports whether a scheduled fn has not yet fired.
func (d *Deferred) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
