package agent

import (
	"sync"
	"time"

	"github.com/go-otbr/go-otbr/lib/control"
	"github.com/go-otbr/go-otbr/lib/events"
	"github.com/go-otbr/go-otbr/lib/openthread"
)

// statusCache is the snapshot of stack state the control server reads.
// It is written only from emitter callbacks on the loop goroutine and read
// from control handler goroutines, which is the whole reason it exists: the
// stack instance itself is single-owner and must never be touched from the
// control plane.
type statusCache struct {
	mu            sync.RWMutex
	role          string
	attached      bool
	networkName   string
	extPanID      string
	threadVersion uint16
	startTime     time.Time
}

func newStatusCache() *statusCache {
	return &statusCache{}
}

func (s *statusCache) setRole(role string) {
	s.mu.Lock()
	s.role = role
	s.mu.Unlock()
}

func (s *statusCache) setAttached(attached bool) {
	s.mu.Lock()
	s.attached = attached
	s.mu.Unlock()
}

func (s *statusCache) setNetworkName(name string) {
	s.mu.Lock()
	s.networkName = name
	s.mu.Unlock()
}

func (s *statusCache) setExtPanID(xpanid string) {
	s.mu.Lock()
	s.extPanID = xpanid
	s.mu.Unlock()
}

func (s *statusCache) setThreadVersion(version uint16) {
	s.mu.Lock()
	s.threadVersion = version
	s.mu.Unlock()
}

func (s *statusCache) markStarted(at time.Time) {
	s.mu.Lock()
	s.startTime = at
	s.mu.Unlock()
}

// uptime returns elapsed milliseconds since the agent initialized, 0 before.
func (s *statusCache) uptime() int64 {
	s.mu.RLock()
	start := s.startTime
	s.mu.RUnlock()
	if start.IsZero() {
		return 0
	}
	return time.Since(start).Milliseconds()
}

var _ control.AgentStatusProvider = (*Agent)(nil)

// GetStatus returns the current status snapshot. Safe from any goroutine.
func (a *Agent) GetStatus() control.AgentStatus {
	a.status.mu.RLock()
	status := control.AgentStatus{
		Role:          a.status.role,
		Attached:      a.status.attached,
		NetworkName:   a.status.networkName,
		ExtPanID:      a.status.extPanID,
		ThreadVersion: a.status.threadVersion,
	}
	a.status.mu.RUnlock()

	status.Uptime = a.status.uptime()
	status.RadioURL = a.cfg.RadioURL
	status.Running = a.isRunning()
	return status
}

// RequestReset flags the controller for re-initialization. Safe from any
// goroutine; the loop performs the actual reset. The explicit wake-up keeps
// an otherwise idle loop from sleeping out its poll timeout first.
func (a *Agent) RequestReset() {
	a.controller.RequestReset()
	a.wake.Wake()
}

// subscribeStatusEvents feeds the cache from the adapter's event stream. The
// handlers run synchronously on the loop goroutine during event emission, so
// reading the instance for the role is safe there.
func (a *Agent) subscribeStatusEvents() {
	emitter := a.controller.Emitter()

	emitter.On(events.EventNetworkName, func(args ...interface{}) {
		if len(args) == 0 {
			return
		}
		if name, ok := args[0].(string); ok {
			a.status.setNetworkName(name)
		}
	})

	emitter.On(events.EventExtPanID, func(args ...interface{}) {
		if len(args) == 0 {
			return
		}
		if xpanid, ok := args[0].(openthread.ExtendedPanID); ok {
			a.status.setExtPanID(xpanid.String())
		}
	})

	emitter.On(events.EventThreadState, func(args ...interface{}) {
		if len(args) == 0 {
			return
		}
		if attached, ok := args[0].(bool); ok {
			a.status.setAttached(attached)
		}
		a.refreshRole()
	})

	emitter.On(events.EventThreadVersion, func(args ...interface{}) {
		if len(args) == 0 {
			return
		}
		if version, ok := args[0].(uint16); ok {
			a.status.setThreadVersion(version)
		}
	})

	// EventPSKc stays out of the cache: the control surface never reports
	// key material.
}

// refreshRole re-reads the role from the instance. Loop goroutine only; a
// thread-state event always accompanies a role change, so subscribing it
// there keeps the cached role current.
func (a *Agent) refreshRole() {
	instance := a.controller.Instance()
	if instance == nil {
		return
	}
	a.status.setRole(instance.DeviceRole().String())
}
