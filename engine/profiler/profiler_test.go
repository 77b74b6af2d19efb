package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler("frames", WithClock(clock.Now), WithInterval(time.Second))

	for i := 0; i < 9; i++ {
		clock.Advance(100 * time.Millisecond)
		_, ok := p.Tick()
		require.False(t, ok, "tick %d", i)
	}

	clock.Advance(100 * time.Millisecond)
	stats, ok := p.Tick()
	require.True(t, ok)
	assert.InDelta(t, 10, stats.Rate, 1e-9)
	assert.Positive(t, stats.SysMB)

	clock.Advance(100 * time.Millisecond)
	_, ok = p.Tick()
	assert.False(t, ok, "a new window starts after a report")
}

func TestTickWithoutTimePassing(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler("stalled", WithClock(clock.Now), WithInterval(time.Nanosecond))

	_, ok := p.Tick()
	assert.False(t, ok)
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	p := NewProfiler("defaults", WithInterval(-time.Second), WithClock(nil), WithLogger(nil))
	assert.Equal(t, time.Second, p.interval)
	assert.NotNil(t, p.now)
	assert.NotNil(t, p.log)
}
