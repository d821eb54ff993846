package collab

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	l := newRateLimiter(3, time.Second)
	now := time.Now()

	assert.True(t, l.allow(now))
	assert.True(t, l.allow(now.Add(10*time.Millisecond)))
	assert.True(t, l.allow(now.Add(20*time.Millisecond)))
	assert.False(t, l.allow(now.Add(30*time.Millisecond)), "fourth event inside the window")

	// Once the earliest events age out, capacity frees up again.
	assert.True(t, l.allow(now.Add(1100*time.Millisecond)))
}

func TestRateLimiterDeniedEventDoesNotConsumeSlot(t *testing.T) {
	l := newRateLimiter(1, time.Second)
	now := time.Now()

	require.True(t, l.allow(now))
	for i := 0; i < 5; i++ {
		assert.False(t, l.allow(now.Add(time.Duration(i)*time.Millisecond)))
	}
	assert.True(t, l.allow(now.Add(1001*time.Millisecond)))
}

func TestCursorThrottleLatestWins(t *testing.T) {
	th := newCursorThrottle(20 * time.Millisecond)

	var mu sync.Mutex
	var flushed []CursorMovePayload
	flush := func(p CursorMovePayload) {
		mu.Lock()
		flushed = append(flushed, p)
		mu.Unlock()
	}

	th.offer(CursorMovePayload{X: 1, Y: 1}, flush)
	th.offer(CursorMovePayload{X: 2, Y: 2}, flush)
	th.offer(CursorMovePayload{X: 3, Y: 3}, flush)

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	require.Len(t, flushed, 1, "positions inside one window coalesce")
	assert.Equal(t, 3.0, flushed[0].X)
	mu.Unlock()

	// A position after the flush starts a new window.
	th.offer(CursorMovePayload{X: 9, Y: 9}, flush)
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	require.Len(t, flushed, 2)
	assert.Equal(t, 9.0, flushed[1].X)
	mu.Unlock()
}

func TestCursorThrottleStop(t *testing.T) {
	th := newCursorThrottle(10 * time.Millisecond)

	var mu sync.Mutex
	count := 0
	th.offer(CursorMovePayload{X: 1}, func(CursorMovePayload) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	th.stop()

	time.Sleep(40 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, count, "stop cancels the pending flush")
	mu.Unlock()

	// Offers after stop are ignored.
	th.offer(CursorMovePayload{X: 2}, func(CursorMovePayload) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	time.Sleep(40 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, count)
	mu.Unlock()
}
