package monotonic

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockStartsWithZeroOffset(t *testing.T) {
	c := NewClock()
	assert.Zero(t, c.Offset())
}

func TestClockNowTracksWallClock(t *testing.T) {
	c := NewClock()

	before := time.Now()
	now := c.Now()
	after := time.Now()

	assert.False(t, now.Before(before), "Now() ran before the surrounding reads")
	assert.False(t, now.After(after), "Now() ran after the surrounding reads")
}

func TestClockNowAppliesOffset(t *testing.T) {
	c := NewClock()
	c.SetOffset(5 * time.Second)

	diff := time.Until(c.Now())
	assert.InDelta(t, (5 * time.Second).Seconds(), diff.Seconds(), 0.1)
}

func TestClockSetOffset(t *testing.T) {
	c := NewClock()

	c.SetOffset(time.Second)
	assert.Equal(t, time.Second, c.Offset())

	c.SetOffset(-500 * time.Millisecond)
	assert.Equal(t, -500*time.Millisecond, c.Offset())
}

func TestDeadlineFreshNotExpired(t *testing.T) {
	d := NewDeadline(time.Hour)
	assert.False(t, d.IsExpired())
}

func TestDeadlineZeroLifetimeExpiresImmediately(t *testing.T) {
	d := NewDeadline(0)
	assert.True(t, d.IsExpired())
}

func TestDeadlineNegativeLifetimePanics(t *testing.T) {
	assert.Panics(t, func() { NewDeadline(-time.Second) })
	assert.Panics(t, func() { NewDeadlineAt(time.Now(), -time.Second) })
}

func TestDeadlineFromEarlierStart(t *testing.T) {
	live := NewDeadlineAt(time.Now().Add(-5*time.Minute), 10*time.Minute)
	assert.False(t, live.IsExpired())

	expired := NewDeadlineAt(time.Now().Add(-15*time.Minute), 10*time.Minute)
	assert.True(t, expired.IsExpired())
}

func TestDeadlineRemaining(t *testing.T) {
	d := NewDeadline(time.Hour)
	remaining := d.Remaining()
	assert.Greater(t, remaining, 59*time.Minute)
	assert.LessOrEqual(t, remaining, time.Hour)

	expired := NewDeadlineAt(time.Now().Add(-10*time.Minute), 5*time.Minute)
	assert.Zero(t, expired.Remaining())
}

func TestDeadlineElapsed(t *testing.T) {
	d := NewDeadlineAt(time.Now().Add(-5*time.Minute), 10*time.Minute)
	assert.InDelta(t, (5 * time.Minute).Seconds(), d.Elapsed().Seconds(), 10)
}

func TestDeadlineLifetimeAndCreatedAt(t *testing.T) {
	start := time.Now()
	d := NewDeadlineAt(start, 42*time.Second)

	assert.Equal(t, 42*time.Second, d.Lifetime())
	assert.Equal(t, start, d.CreatedAt())
}

func TestDeadlineExtend(t *testing.T) {
	d := NewDeadline(5 * time.Minute)

	d.Extend(3 * time.Minute)
	assert.Equal(t, 8*time.Minute, d.Lifetime())

	d.Extend(0)
	assert.Equal(t, 8*time.Minute, d.Lifetime())

	assert.Panics(t, func() { d.Extend(-time.Second) })
}

func TestDeadlineExtendRescuesExpired(t *testing.T) {
	d := NewDeadlineAt(time.Now().Add(-10*time.Minute), 5*time.Minute)
	require.True(t, d.IsExpired())

	d.Extend(10 * time.Minute)
	assert.False(t, d.IsExpired(), "15min lifetime with ~10min elapsed must not be expired")
}

func TestClockConcurrentAccess(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Now()
				_ = c.Offset()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.SetOffset(time.Duration(i*j) * time.Millisecond)
			}
		}(i)
	}
	wg.Wait()
}

func TestDeadlineConcurrentExtendAndRead(t *testing.T) {
	d := NewDeadline(time.Hour)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = d.IsExpired()
				_ = d.Remaining()
				_ = d.Lifetime()
				_ = d.Elapsed()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Extend(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Hour+500*time.Millisecond, d.Lifetime())
}
