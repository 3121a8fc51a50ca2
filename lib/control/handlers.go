package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-otbr/go-otbr/lib/util/logger"
)

// EchoHandler implements the Echo RPC method. It returns whatever value is
// sent in the "Echo" parameter, which is useful for testing connectivity.
//
// Request params:
//
//	{
//	  "Echo": "any_value"
//	}
//
// Response:
//
//	{
//	  "Result": "any_value"
//	}
type EchoHandler struct{}

// NewEchoHandler creates a new Echo handler.
func NewEchoHandler() *EchoHandler {
	return &EchoHandler{}
}

// Handle extracts the "Echo" parameter and returns it unchanged.
func (h *EchoHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		Echo interface{} `json:"Echo"`
	}

	if err := json.Unmarshal(params, &req); err != nil {
		return nil, NewRPCErrorWithData(ErrCodeInvalidParams, "invalid Echo parameter", err.Error())
	}

	return map[string]interface{}{
		"Result": req.Echo,
	}, nil
}

// AgentStatusHandler implements the AgentStatus RPC method. It returns the
// agent status snapshot, filtered to the fields named in the request.
//
// Request params:
//
//	{
//	  "otbr.agent.role": null,
//	  "otbr.agent.network.name": null
//	}
//
// Response:
//
//	{
//	  "otbr.agent.role": "leader",
//	  "otbr.agent.network.name": "OpenThread-c64e"
//	}
//
// Any field present in the request (with a null value) is populated in the
// response. An empty request returns the common fields.
type AgentStatusHandler struct {
	status AgentStatusProvider
}

// NewAgentStatusHandler creates a new AgentStatus handler backed by the
// given status provider.
func NewAgentStatusHandler(status AgentStatusProvider) *AgentStatusHandler {
	return &AgentStatusHandler{
		status: status,
	}
}

// Handle returns agent status values for the requested fields.
func (h *AgentStatusHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req map[string]interface{}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, NewRPCErrorWithData(ErrCodeInvalidParams, "invalid AgentStatus parameters", err.Error())
	}

	status := h.status.GetStatus()
	availableFields := map[string]interface{}{
		"otbr.agent.role":           status.Role,
		"otbr.agent.attached":       status.Attached,
		"otbr.agent.network.name":   status.NetworkName,
		"otbr.agent.network.xpanid": status.ExtPanID,
		"otbr.agent.thread.version": status.ThreadVersion,
		"otbr.agent.uptime":         status.Uptime,
		"otbr.agent.radio.url":      status.RadioURL,
		"otbr.agent.running":        status.Running,
	}

	result := make(map[string]interface{})

	// If specific fields requested, return only those
	if len(req) > 0 {
		for field := range req {
			if value, exists := availableFields[field]; exists {
				result[field] = value
			}
		}
	}

	// If no specific fields or none matched, return common fields
	if len(result) == 0 {
		result["otbr.agent.role"] = status.Role
		result["otbr.agent.attached"] = status.Attached
		result["otbr.agent.network.name"] = status.NetworkName
		result["otbr.agent.uptime"] = status.Uptime
		result["otbr.agent.running"] = status.Running
	}

	return result, nil
}

// AgentResetHandler implements the AgentReset RPC method. A reset request
// flags the agent's controller for re-initialization; the event loop tears
// the stack down and brings it back up on its next iteration.
//
// Request params:
//
//	{
//	  "Reset": null
//	}
//
// Response:
//
//	{
//	  "Reset": null
//	}
type AgentResetHandler struct {
	// AgentControl exposes the reset flag on the agent's controller
	AgentControl interface {
		// RequestReset flags the controller for re-initialization
		RequestReset()
	}
}

// NewAgentResetHandler creates a new AgentReset handler.
func NewAgentResetHandler(control interface{ RequestReset() }) *AgentResetHandler {
	return &AgentResetHandler{
		AgentControl: control,
	}
}

// Handle executes requested control operations.
func (h *AgentResetHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req map[string]interface{}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, NewRPCErrorWithData(ErrCodeInvalidParams, "invalid AgentReset parameters", err.Error())
	}

	result := make(map[string]interface{})

	if _, ok := req["Reset"]; ok {
		log.WithField("at", "AgentResetHandler.Handle").
			Info("stack reset requested via control RPC")
		h.AgentControl.RequestReset()
		result["Reset"] = nil
	}

	if _, ok := req["Shutdown"]; ok {
		// Process shutdown stays on the signal path
		return nil, NewRPCErrorWithData(ErrCodeNotImpl, "Shutdown not implemented", "send SIGTERM to the agent process")
	}

	if len(result) == 0 {
		return nil, NewRPCErrorWithData(ErrCodeInvalidParams, "no operations specified", "specify at least one operation")
	}

	return result, nil
}

// ControlHandler implements the Control RPC method, which manages the
// control server's own settings (password, port, address).
//
// Request params:
//
//	{
//	  "control.password": "new_password"
//	}
//
// Response:
//
//	{
//	  "control.password": null,
//	  "SettingsSaved": true
//	}
//
// Only password changes are implemented; port and address changes would
// require a server restart and are deferred.
type ControlHandler struct {
	authManager interface {
		// ChangePassword updates password and revokes all tokens
		ChangePassword(newPassword string) int
	}
}

// NewControlHandler creates a new Control handler backed by the given
// authentication manager.
func NewControlHandler(authManager interface{ ChangePassword(string) int }) *ControlHandler {
	return &ControlHandler{
		authManager: authManager,
	}
}

// Handle processes password changes and returns SettingsSaved status.
func (h *ControlHandler) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req map[string]interface{}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, NewRPCErrorWithData(ErrCodeInvalidParams, "invalid Control parameters", err.Error())
	}

	result := make(map[string]interface{})
	settingsSaved := false

	if err := h.handlePasswordChange(req, result, &settingsSaved); err != nil {
		return nil, err
	}

	if err := validateNotImplementedSettings(req); err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, NewRPCErrorWithData(ErrCodeInvalidParams, "no settings specified", "specify at least one setting to change")
	}

	result["SettingsSaved"] = settingsSaved
	return result, nil
}

// handlePasswordChange processes a password change request, updating the
// result map and settingsSaved flag on success.
func (h *ControlHandler) handlePasswordChange(req, result map[string]interface{}, settingsSaved *bool) error {
	newPassword, ok := req["control.password"]
	if !ok || newPassword == nil {
		return nil
	}

	passwordStr, ok := newPassword.(string)
	if !ok {
		return NewRPCErrorWithData(ErrCodeInvalidParams, "password must be a string", fmt.Sprintf("got %T", newPassword))
	}

	if passwordStr == "" {
		return NewRPCError(ErrCodeInvalidParams, "password cannot be empty")
	}

	revokedCount := h.authManager.ChangePassword(passwordStr)

	log.WithFields(logger.Fields{
		"at":      "ControlHandler.handlePasswordChange",
		"revoked": revokedCount,
	}).Info("password changed via RPC")

	result["control.password"] = nil
	*settingsSaved = true

	return nil
}

// validateNotImplementedSettings rejects settings that require a server
// restart to change.
func validateNotImplementedSettings(req map[string]interface{}) error {
	if _, ok := req["control.port"]; ok {
		return NewRPCErrorWithData(ErrCodeNotImpl, "port change not implemented", "requires server restart")
	}

	if _, ok := req["control.address"]; ok {
		return NewRPCErrorWithData(ErrCodeNotImpl, "address change not implemented", "requires server restart")
	}

	return nil
}
