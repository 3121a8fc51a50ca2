package signals

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// defaultGracefulTimeout caps how long the pre-shutdown stage may run before
// dispatch moves on to the interrupt handlers.
const defaultGracefulTimeout = 30 * time.Second

var (
	preShutdownMu       sync.RWMutex
	preShutdownHandlers []registeredHandler
	gracefulTimeout     = defaultGracefulTimeout
)

// RegisterPreShutdownHandler adds f to the stage that runs ahead of the
// interrupt handlers on SIGINT/SIGTERM. Network teardown belongs here, for
// example disabling the Thread protocol so the device detaches cleanly
// instead of silently dropping off the mesh.
//
// The stage runs handlers in registration order, each recovered from panics,
// and the interrupt handlers wait until every pre-shutdown handler has
// finished or used up its share of the graceful timeout.
//
// The returned id feeds DeregisterPreShutdownHandler. A nil f registers
// nothing and yields -1.
func RegisterPreShutdownHandler(f Handler) HandlerID {
	if f == nil {
		return -1
	}
	mu.Lock()
	id := nextID
	nextID++
	mu.Unlock()

	preShutdownMu.Lock()
	defer preShutdownMu.Unlock()
	preShutdownHandlers = append(preShutdownHandlers, registeredHandler{id: id, fn: f})
	return id
}

// DeregisterPreShutdownHandler drops the pre-shutdown handler with the
// given id.
func DeregisterPreShutdownHandler(id HandlerID) {
	preShutdownMu.Lock()
	defer preShutdownMu.Unlock()
	for i, h := range preShutdownHandlers {
		if h.id == id {
			preShutdownHandlers = append(preShutdownHandlers[:i], preShutdownHandlers[i+1:]...)
			return
		}
	}
}

// SetGracefulTimeout bounds the whole pre-shutdown stage. Zero or negative
// restores the 30 second default.
func SetGracefulTimeout(timeout time.Duration) {
	preShutdownMu.Lock()
	defer preShutdownMu.Unlock()
	if timeout <= 0 {
		gracefulTimeout = defaultGracefulTimeout
	} else {
		gracefulTimeout = timeout
	}
}

// handlePreShutdown runs all registered pre-shutdown handlers. The graceful
// timeout is divided evenly among the handlers so a hung handler cannot starve
// the ones registered behind it. Returns true if every handler completed
// within its share of the budget.
func handlePreShutdown() bool {
	preShutdownMu.RLock()
	snapshot := make([]registeredHandler, len(preShutdownHandlers))
	copy(snapshot, preShutdownHandlers)
	timeout := gracefulTimeout
	preShutdownMu.RUnlock()

	if len(snapshot) == 0 {
		return true
	}

	perHandler := timeout / time.Duration(len(snapshot))
	ok := true
	for _, h := range snapshot {
		done := make(chan struct{})
		go func(fn Handler) {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "signals: panic in pre-shutdown handler: %v\n", r)
				}
			}()
			fn()
		}(h.fn)

		select {
		case <-done:
		case <-time.After(perHandler):
			fmt.Fprintf(os.Stderr, "signals: pre-shutdown handler timed out after %s\n", perHandler)
			ok = false
		}
	}
	return ok
}
