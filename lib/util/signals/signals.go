// Package signals dispatches process signals to registered callbacks.
// SIGHUP reloads the agent configuration; SIGINT and SIGTERM run the
// pre-shutdown handlers and then the interrupt handlers, so the agent can
// leave the Thread network cleanly before the process exits.
package signals

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
)

// The one-slot buffer holds a signal that arrives before Handle starts
// receiving.
var sigChan = make(chan os.Signal, 1)

// Handler runs when its signal arrives.
type Handler func()

// HandlerID identifies one registration so it can be removed later.
type HandlerID int

type registeredHandler struct {
	id HandlerID
	fn Handler
}

var (
	mu           sync.RWMutex
	reloaders    []registeredHandler
	interrupters []registeredHandler
	nextID       HandlerID
	stopOnce     sync.Once
)

func register(list *[]registeredHandler, f Handler) HandlerID {
	if f == nil {
		return -1
	}
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	*list = append(*list, registeredHandler{id: id, fn: f})
	return id
}

func deregister(list *[]registeredHandler, id HandlerID) {
	mu.Lock()
	defer mu.Unlock()
	for i, h := range *list {
		if h.id == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// snapshot copies a handler list under the read lock so dispatch never runs
// with the lock held.
func snapshot(list *[]registeredHandler) []registeredHandler {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]registeredHandler, len(*list))
	copy(out, *list)
	return out
}

// runHandlers invokes handlers in registration order, isolating each against
// panics so one bad callback cannot take down signal dispatch.
func runHandlers(handlers []registeredHandler, kind string) {
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// No logger at this layer; stderr keeps panicking
					// handlers visible.
					fmt.Fprintf(os.Stderr, "signals: panic in %s handler: %v\n", kind, r)
				}
			}()
			h.fn()
		}()
	}
}

// RegisterReloadHandler adds f to the SIGHUP (config reload) handlers and
// returns its id for DeregisterReloadHandler. A nil f registers nothing and
// yields -1.
func RegisterReloadHandler(f Handler) HandlerID {
	return register(&reloaders, f)
}

// DeregisterReloadHandler drops the reload handler with the given id.
func DeregisterReloadHandler(id HandlerID) {
	deregister(&reloaders, id)
}

// RegisterInterruptHandler adds f to the SIGINT/SIGTERM (shutdown) handlers
// and returns its id for DeregisterInterruptHandler. A nil f registers
// nothing and yields -1.
func RegisterInterruptHandler(f Handler) HandlerID {
	return register(&interrupters, f)
}

// DeregisterInterruptHandler drops the interrupt handler with the given id.
func DeregisterInterruptHandler(id HandlerID) {
	deregister(&interrupters, id)
}

func handleReload() {
	runHandlers(snapshot(&reloaders), "reload")
}

func handleInterrupted() {
	runHandlers(snapshot(&interrupters), "interrupt")
}

// StopHandle ends signal dispatch and unblocks Handle. Delivery is stopped
// before the channel closes so the runtime never sends into a closed
// channel. Repeated calls are no-ops.
func StopHandle() {
	stopOnce.Do(func() {
		signal.Stop(sigChan)
		close(sigChan)
	})
}
