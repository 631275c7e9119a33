package report

import "time"

// Throttle lets a message through at most once per interval. Only Allow
// returning true restarts the window.
type Throttle struct {
	interval time.Duration
	start    time.Time
	now      func() time.Time
}

// NewThrottle starts the first window at now(). A nil now uses time.Now.
func NewThrottle(interval time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{interval: interval, start: now(), now: now}
}

func (t *Throttle) Elapsed() time.Duration { return t.now().Sub(t.start) }

func (t *Throttle) Allow() bool {
	if t.Elapsed() < t.interval {
		return false
	}
	t.start = t.now()
	return true
}
