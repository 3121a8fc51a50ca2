// Package ncp implements the adapter between the host poll loop and a stack
// instance: instance lifecycle, the state-change relay into the event
// emitter, a deferred timer queue, and the poll-loop integration.
//
// Event payloads published through the emitter:
//
//	EventExtPanID      openthread.ExtendedPanID
//	EventThreadState   bool (attached)
//	EventNetworkName   string
//	EventPSKc          openthread.Pskc
//	EventThreadVersion uint16
package ncp

import (
	"time"

	"github.com/go-otbr/go-otbr/lib/events"
	"github.com/go-otbr/go-otbr/lib/mainloop"
	"github.com/go-otbr/go-otbr/lib/openthread"
	"github.com/go-otbr/go-otbr/lib/util/logger"
)

var log = logger.GetOTBRLogger()

// Controller is the host loop's handle on one stack adapter. Except where
// noted, methods must be called from the loop goroutine: the controller owns
// its stack instance exclusively and never locks around it.
type Controller interface {
	mainloop.Processor

	// Init opens the stack instance and wires the state-change relay.
	Init() error
	// Deinit finalizes the stack instance.
	Deinit()
	// Reset tears down and re-initializes the stack instance.
	Reset() error

	// RequestReset flags the controller for re-initialization. Safe from any
	// goroutine.
	RequestReset()
	// IsResetRequested reports whether a reset is pending. Safe from any
	// goroutine.
	IsResetRequested() bool

	// RequestEvent re-publishes the current value of the given event to all
	// subscribers. An unknown event code is a programming error and panics.
	RequestEvent(event events.Event) error

	// PostTimerTask schedules task to run from the host loop at due. Once
	// posted a task always fires; there is no cancellation.
	PostTimerTask(due time.Time, task func())

	Emitter() *events.Emitter
	ThreadHelper() *ThreadHelper
	Instance() openthread.Instance
}
