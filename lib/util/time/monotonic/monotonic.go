package monotonic

import (
	"sync"
	"time"
)

// Clock is the agent's time source. It layers an NTP correction offset on
// top of time.Now(); the returned values keep Go's monotonic reading, so
// durations computed from them are immune to wall clock jumps.
type Clock struct {
	mu     sync.RWMutex
	offset time.Duration
}

// NewClock creates a Clock with zero offset.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current time shifted by the NTP offset.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

// SetOffset records a new clock correction. The NTP check subsystem calls
// this whenever a query produces a fresh offset measurement.
func (c *Clock) SetOffset(offset time.Duration) {
	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
}

// Offset returns the current correction.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Deadline is a point in time after which something has expired. It captures
// its start via time.Now() and measures with time.Since(), so wall clock
// jumps can neither fire it early nor hold it open. Control session tokens
// and commissioning windows are tracked this way.
//
// Safe for concurrent use.
type Deadline struct {
	mu        sync.RWMutex
	createdAt time.Time
	lifetime  time.Duration
}

// NewDeadline starts a deadline that expires after lifetime. A negative
// lifetime panics.
func NewDeadline(lifetime time.Duration) *Deadline {
	return NewDeadlineAt(time.Now(), lifetime)
}

// NewDeadlineAt starts a deadline from an explicit start time, which must
// come from time.Now() so the monotonic reading is present. Useful when the
// start was captured earlier than the deadline is stored. A negative
// lifetime panics.
func NewDeadlineAt(startTime time.Time, lifetime time.Duration) *Deadline {
	if lifetime < 0 {
		panic("monotonic: negative lifetime")
	}
	return &Deadline{
		createdAt: startTime,
		lifetime:  lifetime,
	}
}

// Remaining returns the time left before expiry, zero once expired.
func (d *Deadline) Remaining() time.Duration {
	d.mu.RLock()
	lifetime := d.lifetime
	d.mu.RUnlock()
	if remaining := lifetime - time.Since(d.createdAt); remaining > 0 {
		return remaining
	}
	return 0
}

// IsExpired reports whether the deadline has passed. A zero-lifetime
// deadline is expired from the start.
func (d *Deadline) IsExpired() bool {
	return d.Remaining() == 0
}

// Elapsed returns the time since the deadline started.
func (d *Deadline) Elapsed() time.Duration {
	return time.Since(d.createdAt)
}

// Lifetime returns the configured total lifetime.
func (d *Deadline) Lifetime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lifetime
}

// CreatedAt returns the start time. For durations, prefer Elapsed or
// Remaining; the monotonic reading may be stripped from the returned value
// in some contexts.
func (d *Deadline) CreatedAt() time.Time {
	return d.createdAt
}

// Extend widens the deadline by additional lifetime, rescuing it if it has
// already expired. Panics if additional is negative.
func (d *Deadline) Extend(additional time.Duration) {
	if additional < 0 {
		panic("monotonic: negative extension")
	}
	d.mu.Lock()
	d.lifetime += additional
	d.mu.Unlock()
}
