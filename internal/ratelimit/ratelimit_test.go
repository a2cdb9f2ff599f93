package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances time only when the limiter sleeps.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Sleep(d time.Duration)   { c.now = c.now.Add(d) }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestAcquire_UnderQuotaNeverBlocks(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := NewWithClock(5, time.Minute, clock.Now, clock.Sleep)

	start := clock.now
	for i := 0; i < 5; i++ {
		l.Acquire()
	}
	assert.Equal(t, start, clock.now, "first 5 admissions must not sleep")
}

func TestAcquire_BurstBlocksUntilWindowFrees(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := NewWithClock(5, time.Minute, clock.Now, clock.Sleep)

	for i := 0; i < 5; i++ {
		l.Acquire()
	}
	l.Acquire() // 6th: must wait out the full window
	assert.Equal(t, time.Unix(1060, 0), clock.now)
}

func TestAcquire_SlidingWindowProperty(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	l := NewWithClock(3, 10*time.Second, clock.Now, clock.Sleep)

	// Mixed traffic: bursts plus idle gaps.
	var admitted []time.Time
	for i := 0; i < 12; i++ {
		l.Acquire()
		admitted = append(admitted, clock.now)
		if i%4 == 3 {
			clock.Advance(3 * time.Second)
		}
	}

	require.Len(t, admitted, 12)
	// For every admission, no more than 3 admissions fall inside the
	// trailing 10-second window ending at it.
	for i, at := range admitted {
		count := 0
		for _, other := range admitted[:i+1] {
			if at.Sub(other) < 10*time.Second {
				count++
			}
		}
		assert.LessOrEqual(t, count, 3, "window ending at admission %d", i)
	}
}

func TestAcquire_EvictsExpiredAdmissions(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	l := NewWithClock(2, 10*time.Second, clock.Now, clock.Sleep)

	l.Acquire()
	l.Acquire()
	clock.Advance(11 * time.Second)

	start := clock.now
	l.Acquire()
	l.Acquire()
	assert.Equal(t, start, clock.now, "expired admissions must not count against the quota")
}
