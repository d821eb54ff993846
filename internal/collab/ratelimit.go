package collab

import (
	"sync"
	"time"
)

// rateLimiter is a sliding-window counter: at most limit events per window.
// Excess events are dropped by the caller, never queued.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	times  []time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window}
}

func (l *rateLimiter) allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.times[:0]
	for _, t := range l.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.times = kept

	if len(l.times) >= l.limit {
		return false
	}
	l.times = append(l.times, now)
	return true
}

// cursorThrottle coalesces cursor positions to at most one flush per
// interval. Positions arriving inside the window overwrite the pending one,
// so the most recent position always wins; nothing is queued.
type cursorThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	pending  *CursorMovePayload
	timer    *time.Timer
	stopped  bool
}

func newCursorThrottle(interval time.Duration) *cursorThrottle {
	return &cursorThrottle{interval: interval}
}

// offer records a position and schedules a flush if none is pending. flush
// runs on the timer goroutine, never inline.
func (t *cursorThrottle) offer(p CursorMovePayload, flush func(CursorMovePayload)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.pending = &p
	if t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.interval, func() {
		t.mu.Lock()
		p := t.pending
		t.pending = nil
		t.timer = nil
		stopped := t.stopped
		t.mu.Unlock()

		if p != nil && !stopped {
			flush(*p)
		}
	})
}

// stop cancels any pending flush; used when the connection goes away.
func (t *cursorThrottle) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
}
