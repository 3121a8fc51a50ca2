// Package mainloop provides the select(2) plumbing for the agent's host poll
// loop. Every participant implements Processor: before each poll it merges
// its file descriptors and earliest wake-up time into a shared Context, and
// after the poll it consumes whatever became ready.
package mainloop

import (
	"time"

	"github.com/samber/oops"
	"golang.org/x/sys/unix"
)

// DefaultTimeout is the poll timeout used when no processor asks to be woken
// earlier.
const DefaultTimeout = 10 * time.Second

// ErrInterrupted is returned by Poll when select(2) is interrupted by a
// signal. Callers rebuild the descriptor sets and poll again.
var ErrInterrupted = oops.Errorf("select interrupted by signal")

// Context carries the descriptor sets and the wake-up deadline for one
// iteration of the poll loop.
type Context struct {
	ReadFds  unix.FdSet
	WriteFds unix.FdSet
	ErrorFds unix.FdSet
	MaxFd    int
	Timeout  time.Duration
}

// NewContext returns a Context reset with the default timeout.
func NewContext() *Context {
	ctx := &Context{}
	ctx.Reset(DefaultTimeout)
	return ctx
}

// Reset clears the descriptor sets and restores the timeout ahead of the next
// iteration.
func (c *Context) Reset(timeout time.Duration) {
	c.ReadFds.Zero()
	c.WriteFds.Zero()
	c.ErrorFds.Zero()
	c.MaxFd = -1
	c.Timeout = timeout
}

// AddReadFd marks fd for read readiness. Negative descriptors are ignored.
func (c *Context) AddReadFd(fd int) {
	if fd < 0 {
		return
	}
	c.ReadFds.Set(fd)
	c.trackFd(fd)
}

// AddWriteFd marks fd for write readiness. Negative descriptors are ignored.
func (c *Context) AddWriteFd(fd int) {
	if fd < 0 {
		return
	}
	c.WriteFds.Set(fd)
	c.trackFd(fd)
}

// AddErrorFd marks fd for error conditions. Negative descriptors are ignored.
func (c *Context) AddErrorFd(fd int) {
	if fd < 0 {
		return
	}
	c.ErrorFds.Set(fd)
	c.trackFd(fd)
}

func (c *Context) trackFd(fd int) {
	if fd > c.MaxFd {
		c.MaxFd = fd
	}
}

// CanRead reports whether fd was marked readable by the last poll.
func (c *Context) CanRead(fd int) bool {
	return fd >= 0 && c.ReadFds.IsSet(fd)
}

// CanWrite reports whether fd was marked writable by the last poll.
func (c *Context) CanWrite(fd int) bool {
	return fd >= 0 && c.WriteFds.IsSet(fd)
}

// HasError reports whether fd was marked with an error condition by the last
// poll.
func (c *Context) HasError(fd int) bool {
	return fd >= 0 && c.ErrorFds.IsSet(fd)
}

// SetTimeoutIfEarlier lowers the wake-up deadline. It never extends it, and
// negative durations clamp to an immediate wake-up.
func (c *Context) SetTimeoutIfEarlier(timeout time.Duration) {
	if timeout < 0 {
		timeout = 0
	}
	if timeout < c.Timeout {
		c.Timeout = timeout
	}
}

// Timeval converts the current timeout for select(2).
func (c *Context) Timeval() unix.Timeval {
	return unix.NsecToTimeval(c.Timeout.Nanoseconds())
}

// Processor is a participant in the host poll loop. Both methods are always
// invoked from the loop goroutine.
type Processor interface {
	// UpdateFdSet merges the processor's descriptors and earliest wake-up
	// time into the context before polling.
	UpdateFdSet(ctx *Context)
	// Process handles whatever became ready after polling.
	Process(ctx *Context)
}

// Poll blocks in select(2) until a descriptor becomes ready or the context
// timeout expires. Returns the number of ready descriptors. A signal
// interruption yields ErrInterrupted; the caller rebuilds the sets and polls
// again, mirroring the classic select loop.
func Poll(c *Context) (int, error) {
	tv := c.Timeval()
	n, err := unix.Select(c.MaxFd+1, &c.ReadFds, &c.WriteFds, &c.ErrorFds, &tv)
	if err == unix.EINTR {
		return 0, ErrInterrupted
	}
	if err != nil {
		return n, oops.Errorf("select failed: %w", err)
	}
	return n, nil
}
