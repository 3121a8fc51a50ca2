package ncp

import (
	"sync"

	"github.com/samber/oops"

	"github.com/go-otbr/go-otbr/lib/openthread"
	"github.com/go-otbr/go-otbr/lib/util/logger"
)

// ThreadHelper layers network-management conveniences over a stack instance:
// role tracking with subscriber callbacks and the resume of a stored network
// after boot. The controller constructs one per instance during Init and
// forwards every state-change bitmask to it.
type ThreadHelper struct {
	instance   openthread.Instance
	controller *OpenThreadController

	mu           sync.RWMutex
	role         openthread.DeviceRole
	roleHandlers []func(openthread.DeviceRole)
}

// NewThreadHelper creates a helper bound to the given instance.
func NewThreadHelper(instance openthread.Instance, controller *OpenThreadController) *ThreadHelper {
	return &ThreadHelper{
		instance:   instance,
		controller: controller,
		role:       instance.DeviceRole(),
	}
}

// StateChangedCallback receives the full state-change bitmask from the
// controller's relay. On a role change it records the new role and notifies
// the registered role handlers. Runs on the loop goroutine.
func (h *ThreadHelper) StateChangedCallback(flags openthread.ChangedFlags) {
	if !flags.Has(openthread.ChangedThreadRole) {
		return
	}
	role := h.instance.DeviceRole()

	h.mu.Lock()
	previous := h.role
	h.role = role
	handlers := make([]func(openthread.DeviceRole), len(h.roleHandlers))
	copy(handlers, h.roleHandlers)
	h.mu.Unlock()

	log.WithFields(logger.Fields{
		"at":   "(ThreadHelper) StateChangedCallback",
		"from": previous.String(),
		"to":   role.String(),
	}).Debug("device role changed")

	for _, fn := range handlers {
		fn(role)
	}
}

// AddRoleHandler registers fn to be called with the new role after every role
// change. Handlers run on the loop goroutine. A nil handler is ignored.
func (h *ThreadHelper) AddRoleHandler(fn func(openthread.DeviceRole)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.roleHandlers = append(h.roleHandlers, fn)
	h.mu.Unlock()
}

// Role returns the last observed device role.
func (h *ThreadHelper) Role() openthread.DeviceRole {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.role
}

// TryResumeNetwork re-enables a previously commissioned network: when the
// stored dataset has a pan id and the role is still disabled, it brings the
// interface up and starts Thread. Returns nil when there is nothing to do.
func (h *ThreadHelper) TryResumeNetwork() error {
	if !h.instance.PanID().IsSet() || h.instance.DeviceRole() != openthread.RoleDisabled {
		return nil
	}

	log.WithFields(logger.Fields{
		"at":    "(ThreadHelper) TryResumeNetwork",
		"panid": h.instance.PanID().String(),
	}).Debug("resuming stored network")

	if err := h.instance.SetIP6Enabled(true); err != nil {
		err = oops.Errorf("resume network: enable ip6: %w", err)
		log.WithError(err).Warn("Failed to resume stored network")
		return err
	}
	if err := h.instance.SetThreadEnabled(true); err != nil {
		err = oops.Errorf("resume network: enable thread: %w", err)
		log.WithError(err).Warn("Failed to resume stored network")
		return err
	}
	return nil
}
