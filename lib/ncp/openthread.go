package ncp

import (
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/go-otbr/go-otbr/lib/events"
	"github.com/go-otbr/go-otbr/lib/mainloop"
	"github.com/go-otbr/go-otbr/lib/openthread"
	"github.com/go-otbr/go-otbr/lib/util"
	"github.com/go-otbr/go-otbr/lib/util/logger"
	"github.com/go-otbr/go-otbr/lib/util/time/monotonic"
)

// OpenThreadController is the Controller implementation backed by an
// OpenThread stack instance. The emitter and the timer queue live for the
// controller's whole lifetime; the instance and the helper are replaced by
// Reset.
type OpenThreadController struct {
	cfg openthread.PlatformConfig

	clock *monotonic.Clock
	// now is the timer time source, swappable for deterministic tests. It
	// defaults to the monotonic clock.
	now func() time.Time

	instance openthread.Instance
	helper   *ThreadHelper
	emitter  *events.Emitter
	timers   *timerQueue

	resetRequested atomic.Bool
	networkResumed bool
}

var _ Controller = (*OpenThreadController)(nil)

// New creates a controller for the given platform configuration. Nothing is
// opened until Init.
func New(cfg *openthread.PlatformConfig) *OpenThreadController {
	clock := monotonic.NewClock()
	return &OpenThreadController{
		cfg:     *cfg,
		clock:   clock,
		now:     clock.Now,
		emitter: events.NewEmitter(),
		timers:  newTimerQueue(),
	}
}

// Clock returns the controller's monotonic clock. The NTP check subsystem
// registers it as an offset listener so deferred timers honor clock
// corrections.
func (c *OpenThreadController) Clock() *monotonic.Clock {
	return c.clock
}

// Init opens the stack instance, installs the state-change callback, and
// constructs the helper. The platform reset handler is wired to the
// controller's reset flag, so a stack-requested reset surfaces through
// IsResetRequested on the host loop. On failure the instance is finalized
// and the error returned; there are no retries.
func (c *OpenThreadController) Init() error {
	if c.instance != nil {
		return oops.Errorf("ncp controller already initialized: %w", openthread.ErrInvalidState)
	}

	platformCfg := c.cfg
	platformCfg.ResetHandler = c.RequestReset

	instance, err := openthread.NewInstance(&platformCfg)
	if err != nil {
		return oops.Errorf("init ncp controller: %w", err)
	}
	c.instance = instance

	if err := instance.SetStateChangedCallback(c.handleStateChanged); err != nil {
		instance.Finalize()
		c.instance = nil
		return oops.Errorf("register state-change callback: %w", err)
	}

	c.helper = NewThreadHelper(instance, c)

	log.WithFields(logger.Fields{
		"at":        "(OpenThreadController) Init",
		"ifname":    c.cfg.InterfaceName,
		"radio_url": c.cfg.RadioURL,
	}).Debug("ncp controller initialized")

	for _, event := range []events.Event{
		events.EventExtPanID,
		events.EventThreadState,
		events.EventNetworkName,
		events.EventPSKc,
		events.EventThreadVersion,
	} {
		c.publishEvent(event)
	}
	return nil
}

// Deinit finalizes the stack instance. The controller may be initialized
// again afterwards.
func (c *OpenThreadController) Deinit() {
	if c.instance == nil {
		return
	}
	c.instance.Finalize()
	c.instance = nil
	c.helper = nil
	log.WithFields(logger.Fields{
		"at":     "(OpenThreadController) Deinit",
		"ifname": c.cfg.InterfaceName,
	}).Debug("ncp controller deinitialized")
}

// Reset tears the stack instance down and boots a fresh one. The one-shot
// network resume is re-armed since a reset is a new boot, and the reset flag
// is cleared only once the new instance is up. An Init failure is surfaced
// to the caller with the flag still set.
func (c *OpenThreadController) Reset() error {
	log.WithFields(logger.Fields{
		"at":     "(OpenThreadController) Reset",
		"ifname": c.cfg.InterfaceName,
	}).Debug("resetting stack instance")

	c.Deinit()
	if err := c.Init(); err != nil {
		return oops.Errorf("reset stack instance: %w", err)
	}
	c.networkResumed = false
	c.resetRequested.Store(false)
	return nil
}

// RequestReset flags the controller for re-initialization. The host loop
// observes the flag after its next poll and performs the actual reset. Safe
// to call from any goroutine.
func (c *OpenThreadController) RequestReset() {
	if c.resetRequested.CompareAndSwap(false, true) {
		log.WithFields(logger.Fields{
			"at":     "(OpenThreadController) RequestReset",
			"ifname": c.cfg.InterfaceName,
		}).Debug("stack reset requested")
	}
}

// IsResetRequested reports whether a reset is pending. Safe to call from any
// goroutine.
func (c *OpenThreadController) IsResetRequested() bool {
	return c.resetRequested.Load()
}

// handleStateChanged is the single state-change callback installed on the
// instance. It republishes the changed fields as events and then forwards
// the full bitmask to the helper. Runs on the loop goroutine during
// TaskletsProcess.
func (c *OpenThreadController) handleStateChanged(flags openthread.ChangedFlags) {
	if flags.Has(openthread.ChangedThreadNetworkName) {
		c.emitter.Emit(events.EventNetworkName, c.instance.NetworkName())
	}
	if flags.Has(openthread.ChangedThreadExtPanID) {
		c.emitter.Emit(events.EventExtPanID, c.instance.ExtendedPanID())
	}
	if flags.Has(openthread.ChangedThreadRole) {
		c.emitter.Emit(events.EventThreadState, c.instance.DeviceRole().IsAttached())
	}
	if flags.Has(openthread.ChangedPskc) {
		c.emitter.Emit(events.EventPSKc, c.instance.Pskc())
	}
	if c.helper != nil {
		c.helper.StateChangedCallback(flags)
	}
}

// RequestEvent re-publishes the current value for the given event to all
// subscribers. An unknown event code is a programming error and panics.
func (c *OpenThreadController) RequestEvent(event events.Event) error {
	log.WithFields(logger.Fields{
		"at":    "(OpenThreadController) RequestEvent",
		"event": event.String(),
	}).Debug("event re-publish requested")
	c.publishEvent(event)
	return nil
}

func (c *OpenThreadController) publishEvent(event events.Event) {
	switch event {
	case events.EventExtPanID:
		c.emitter.Emit(events.EventExtPanID, c.instance.ExtendedPanID())
	case events.EventThreadState:
		c.emitter.Emit(events.EventThreadState, c.instance.DeviceRole().IsAttached())
	case events.EventNetworkName:
		c.emitter.Emit(events.EventNetworkName, c.instance.NetworkName())
	case events.EventPSKc:
		c.emitter.Emit(events.EventPSKc, c.instance.Pskc())
	case events.EventThreadVersion:
		c.emitter.Emit(events.EventThreadVersion, c.instance.ThreadVersion())
	default:
		util.Panicf("ncp: unknown event code %d requested", int(event))
	}
}

// PostTimerTask schedules task to run from the host loop at due. Once posted
// a task always fires; there is no cancellation. Loop goroutine only.
func (c *OpenThreadController) PostTimerTask(due time.Time, task func()) {
	c.timers.Post(due, task)
}

// UpdateFdSet merges the adapter's wake-up needs into the poll context: an
// immediate wake-up when tasklets are pending, otherwise the earliest
// deferred timer, then whatever the stack instance itself needs.
func (c *OpenThreadController) UpdateFdSet(ctx *mainloop.Context) {
	if c.instance.TaskletsArePending() {
		ctx.SetTimeoutIfEarlier(0)
	} else if due, ok := c.timers.NextDue(); ok {
		ctx.SetTimeoutIfEarlier(due.Sub(c.now()))
	}
	c.instance.MainloopUpdate(ctx)
}

// Process runs one adapter pass after a poll: stack tasklets, stack I/O and
// alarms, due deferred tasks, then the one-shot network resume.
func (c *OpenThreadController) Process(ctx *mainloop.Context) {
	c.instance.TaskletsProcess()
	c.instance.MainloopProcess(ctx)
	c.timers.Fire(c.now())
	c.tryResumeNetworkOnce()
}

// tryResumeNetworkOnce attempts the network resume until it succeeds once
// per boot. A nil return, including the nothing-to-do case, consumes the
// shot; a failure leaves it armed for the next pass.
func (c *OpenThreadController) tryResumeNetworkOnce() {
	if c.networkResumed {
		return
	}
	if err := c.helper.TryResumeNetwork(); err != nil {
		return
	}
	c.networkResumed = true
}

// Emitter returns the controller's event emitter. Valid for the controller's
// whole lifetime; subscriptions survive Reset.
func (c *OpenThreadController) Emitter() *events.Emitter {
	return c.emitter
}

// ThreadHelper returns the network-management helper. Valid between Init and
// Deinit.
func (c *OpenThreadController) ThreadHelper() *ThreadHelper {
	return c.helper
}

// Instance exposes the underlying stack instance, exclusively owned by this
// controller. Loop goroutine only; valid between Init and Deinit.
func (c *OpenThreadController) Instance() openthread.Instance {
	return c.instance
}
