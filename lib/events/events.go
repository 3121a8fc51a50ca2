// Package events implements the publish/subscribe emitter the adapter uses
// to fan out stack state changes. Subscribers register per-event handlers;
// emission is synchronous, in registration order, and a panicking subscriber
// is recovered so it cannot take down the event loop.
package events

import (
	"sync"

	"github.com/go-otbr/go-otbr/lib/util/logger"
)

var log = logger.GetOTBRLogger()

// Event identifies one of the adapter's published state channels. The
// numeric values are part of the adapter's external contract.
type Event int

const (
	// EventExtPanID publishes the extended PAN ID (openthread.ExtendedPanID).
	EventExtPanID Event = iota + 1
	// EventThreadState publishes the attachment state (bool).
	EventThreadState
	// EventNetworkName publishes the network name (string).
	EventNetworkName
	// EventPSKc publishes the commissioner key (openthread.Pskc).
	EventPSKc
	// EventThreadVersion publishes the protocol version (uint16).
	EventThreadVersion
)

func (e Event) String() string {
	switch e {
	case EventExtPanID:
		return "ext_panid"
	case EventThreadState:
		return "thread_state"
	case EventNetworkName:
		return "network_name"
	case EventPSKc:
		return "pskc"
	case EventThreadVersion:
		return "thread_version"
	default:
		return "unknown"
	}
}

// Handler receives the payload published with Emit.
type Handler func(args ...interface{})

// HandlerID identifies a subscription for removal via Off.
type HandlerID int

type registeredHandler struct {
	id HandlerID
	fn Handler
}

// Emitter dispatches events to subscribers. The zero value is not usable;
// call NewEmitter.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[Event][]registeredHandler
	nextID   HandlerID
}

func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[Event][]registeredHandler),
	}
}

// On subscribes a handler to an event. Returns a HandlerID for Off.
// Nil handlers are silently ignored and return -1.
func (e *Emitter) On(event Event, fn Handler) HandlerID {
	if fn == nil {
		return -1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers[event] = append(e.handlers[event], registeredHandler{id: id, fn: fn})
	return id
}

// Off removes a previously registered handler by ID.
func (e *Emitter) Off(event Event, id HandlerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	handlers := e.handlers[event]
	for i, h := range handlers {
		if h.id == id {
			e.handlers[event] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// Emit synchronously delivers args to every subscriber of event in
// registration order. A panic inside a handler is recovered and logged so
// remaining handlers still run.
func (e *Emitter) Emit(event Event, args ...interface{}) {
	e.mu.RLock()
	snapshot := make([]registeredHandler, len(e.handlers[event]))
	copy(snapshot, e.handlers[event])
	e.mu.RUnlock()

	for _, h := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logger.Fields{
						"at":    "(Emitter) Emit",
						"event": event.String(),
						"panic": r,
					}).Error("recovered panic in event handler")
				}
			}()
			h.fn(args...)
		}()
	}
}

// HandlerCount returns the number of subscribers for an event.
func (e *Emitter) HandlerCount(event Event) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}
