// Package agent ties the pieces into one runnable border router agent: it
// owns the stack adapter, drives the host poll loop, maintains the status
// snapshot the control server reads, and manages the control server's
// lifetime.
package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/go-otbr/go-otbr/lib/config"
	"github.com/go-otbr/go-otbr/lib/control"
	"github.com/go-otbr/go-otbr/lib/events"
	"github.com/go-otbr/go-otbr/lib/mainloop"
	"github.com/go-otbr/go-otbr/lib/ncp"
	"github.com/go-otbr/go-otbr/lib/openthread"
	"github.com/go-otbr/go-otbr/lib/util/logger"
	"github.com/go-otbr/go-otbr/lib/util/time/ntpcheck"
)

var log = logger.GetOTBRLogger()

// Agent is one border router agent process: a stack adapter, the poll loop
// that drives it, a status cache for cross-goroutine reads, and the control
// server. Run owns the loop goroutine; everything stack-facing happens there.
type Agent struct {
	cfg        *config.AgentConfig
	controller *ncp.OpenThreadController
	status     *statusCache
	wake       *wakePipe

	controlServer *control.Server
	ntpChecker    *ntpcheck.Checker

	// processors participate in every poll-loop iteration
	processors []mainloop.Processor

	// running flag and mutex for thread-safe access
	running bool
	runMux  sync.RWMutex

	// done is replaced per run and closed when the loop exits
	done chan struct{}
}

// NewAgent creates an agent from the given configuration. Nothing is opened
// until Init.
func NewAgent(cfg *config.AgentConfig) (*Agent, error) {
	log.Debug("Creating agent with provided configuration")

	if cfg == nil {
		return nil, oops.Errorf("agent: config cannot be nil")
	}

	wake, err := newWakePipe()
	if err != nil {
		log.WithError(err).Error("Failed to create agent wake pipe")
		return nil, err
	}

	controller := ncp.New(&openthread.PlatformConfig{
		InterfaceName: cfg.InterfaceName,
		RadioURL:      cfg.RadioURL,
		RadioConfig:   cfg.RadioConfig,
		ResetRadio:    cfg.ResetRadio,
		SpeedUpFactor: cfg.SpeedUpFactor,
		DataDir:       cfg.DataDir,
	})

	a := &Agent{
		cfg:        cfg,
		controller: controller,
		status:     newStatusCache(),
		wake:       wake,
		done:       make(chan struct{}),
	}
	a.processors = []mainloop.Processor{controller, wake}

	log.Debug("Agent created successfully from configuration")
	return a, nil
}

// Controller returns the agent's stack adapter. Stack-facing methods on it
// stay loop-goroutine-only; see ncp.Controller.
func (a *Agent) Controller() *ncp.OpenThreadController {
	return a.controller
}

// Init brings the agent up: data directory, stack adapter, status
// subscriptions, initial event prime, and the control server. On failure
// everything already started is unwound.
func (a *Agent) Init() error {
	log.WithFields(logger.Fields{
		"at":        "(Agent) Init",
		"ifname":    a.cfg.InterfaceName,
		"radio_url": a.cfg.RadioURL,
	}).Debug("initializing agent")

	if err := a.ensureDataDir(); err != nil {
		return err
	}

	if err := a.controller.Init(); err != nil {
		log.WithError(err).Error("Failed to initialize ncp controller")
		return err
	}

	a.subscribeStatusEvents()

	if err := a.primeStatusEvents(); err != nil {
		a.controller.Deinit()
		return err
	}

	a.status.markStarted(time.Now())

	if err := a.startControlServer(); err != nil {
		a.controller.Deinit()
		return err
	}

	a.startNTPCheck()

	log.WithFields(logger.Fields{
		"at":     "(Agent) Init",
		"ifname": a.cfg.InterfaceName,
	}).Info("agent initialized")
	return nil
}

// ensureDataDir creates the stack settings directory with owner-only
// permissions. Network keys and PSKc values end up in there.
func (a *Agent) ensureDataDir() error {
	if a.cfg.DataDir == "" {
		return nil
	}
	if err := config.CreateSecureDirectory(a.cfg.DataDir); err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":       "(Agent) ensureDataDir",
			"data_dir": a.cfg.DataDir,
		}).Error("Failed to create agent data directory")
		return oops.Errorf("create data directory: %w", err)
	}
	return nil
}

// primeStatusEvents re-publishes every event so subscribers that attached
// after the adapter booted still observe the initial values.
func (a *Agent) primeStatusEvents() error {
	for _, event := range []events.Event{
		events.EventExtPanID,
		events.EventThreadState,
		events.EventNetworkName,
		events.EventPSKc,
		events.EventThreadVersion,
	} {
		if err := a.controller.RequestEvent(event); err != nil {
			return oops.Errorf("prime %s event: %w", event, err)
		}
	}
	return nil
}

// Run drives the host poll loop until Stop is called or ctx is cancelled,
// both of which end the loop cleanly. A failed select or a failed stack
// reset aborts with a wrapped error. Run must only be called once at a time.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.markRunning(); err != nil {
		return err
	}
	defer a.markStopped()

	// Wake the loop when the context goes away so cancellation does not wait
	// out a full poll timeout.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			a.Stop()
		case <-watchDone:
		}
	}()

	log.WithFields(logger.Fields{
		"at":     "(Agent) Run",
		"ifname": a.cfg.InterfaceName,
	}).Info("agent mainloop started")

	loopCtx := mainloop.NewContext()
	for a.isRunning() {
		loopCtx.Reset(mainloop.DefaultTimeout)
		for _, p := range a.processors {
			p.UpdateFdSet(loopCtx)
		}

		if _, err := mainloop.Poll(loopCtx); err != nil {
			if errors.Is(err, mainloop.ErrInterrupted) {
				continue
			}
			log.WithError(err).Error("agent mainloop poll failed")
			return oops.Errorf("agent mainloop: %w", err)
		}

		if a.controller.IsResetRequested() {
			if err := a.resetController(); err != nil {
				return err
			}
			continue
		}

		for _, p := range a.processors {
			p.Process(loopCtx)
		}
	}

	log.WithFields(logger.Fields{
		"at":     "(Agent) Run",
		"ifname": a.cfg.InterfaceName,
	}).Info("agent mainloop stopped")
	return nil
}

// resetController performs the requested stack reset. The agent cannot carry
// on without an instance, so a failed re-init ends the run.
func (a *Agent) resetController() error {
	log.WithFields(logger.Fields{
		"at":     "(Agent) resetController",
		"ifname": a.cfg.InterfaceName,
	}).Info("performing requested stack reset")

	if err := a.controller.Reset(); err != nil {
		log.WithError(err).Error("stack reset failed")
		return oops.Errorf("agent mainloop: stack reset: %w", err)
	}
	return nil
}

// Stop ends a running agent's loop. Idempotent and safe from any goroutine;
// stopping an agent that is not running is a no-op.
func (a *Agent) Stop() {
	a.runMux.Lock()
	defer a.runMux.Unlock()

	if !a.running {
		log.Debug("Agent already stopped")
		return
	}

	log.Debug("Stopping agent")
	a.running = false
	a.wake.Wake()
}

// Wait blocks until a started agent's loop has fully exited.
func (a *Agent) Wait() {
	a.runMux.RLock()
	done := a.done
	a.runMux.RUnlock()
	<-done
}

// Deinit tears the agent down: control server and NTP check first, then the
// stack adapter, then the wake pipe. Must not be called while Run is active.
func (a *Agent) Deinit() {
	a.stopControlServer()
	a.stopNTPCheck()
	a.controller.Deinit()
	a.wake.Close()

	log.WithFields(logger.Fields{
		"at":     "(Agent) Deinit",
		"ifname": a.cfg.InterfaceName,
	}).Debug("agent deinitialized")
}

// Close implements io.Closer so the agent fits the shutdown closer registry.
// It stops a running loop, waits for it to exit, and deinitializes.
func (a *Agent) Close() error {
	if a.isRunning() {
		a.Stop()
		a.Wait()
	}
	a.Deinit()
	return nil
}

func (a *Agent) markRunning() error {
	a.runMux.Lock()
	defer a.runMux.Unlock()

	if a.running {
		log.WithFields(logger.Fields{
			"at":     "(Agent) Run",
			"reason": "agent is already running",
		}).Error("Error starting agent mainloop")
		return oops.Errorf("agent already running")
	}
	a.running = true
	a.done = make(chan struct{})
	return nil
}

func (a *Agent) markStopped() {
	a.runMux.Lock()
	a.running = false
	close(a.done)
	a.runMux.Unlock()
}

func (a *Agent) isRunning() bool {
	a.runMux.RLock()
	defer a.runMux.RUnlock()
	return a.running
}
