package agent

import (
	"golang.org/x/sys/unix"

	"github.com/samber/oops"

	"github.com/go-otbr/go-otbr/lib/mainloop"
)

// wakePipe participates in the poll loop so other goroutines can interrupt a
// blocked select(2). Stop and the context watcher write a byte; the loop
// wakes, drains the pipe, and re-checks its running flag. Signals alone are
// not enough in Go: they are delivered to the runtime, not to the thread
// parked in select.
type wakePipe struct {
	r, w int
}

var _ mainloop.Processor = (*wakePipe)(nil)

func newWakePipe() (*wakePipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, oops.Errorf("create wake pipe: %w", err)
	}
	return &wakePipe{r: fds[0], w: fds[1]}, nil
}

// Wake nudges the poll loop. Safe from any goroutine. A full pipe means a
// wake-up is already pending, so the write result is ignored.
func (p *wakePipe) Wake() {
	_, _ = unix.Write(p.w, []byte{0})
}

// UpdateFdSet merges the read end into the poll context.
func (p *wakePipe) UpdateFdSet(ctx *mainloop.Context) {
	ctx.AddReadFd(p.r)
}

// Process drains pending wake-up bytes after a poll.
func (p *wakePipe) Process(ctx *mainloop.Context) {
	if !ctx.CanRead(p.r) {
		return
	}
	var buf [64]byte
	for {
		n, err := unix.Read(p.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases both pipe ends. The loop must not be polling anymore.
func (p *wakePipe) Close() {
	if p.r >= 0 {
		unix.Close(p.r)
		p.r = -1
	}
	if p.w >= 0 {
		unix.Close(p.w)
		p.w = -1
	}
}
