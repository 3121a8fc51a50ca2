package control

// AgentStatus is a point-in-time snapshot of the agent for RPC responses.
// Snapshots are plain values: handlers read them without touching the stack
// instance, which stays owned by the agent's loop goroutine.
type AgentStatus struct {
	// Role is the device role string ("disabled", "detached", "child",
	// "router", "leader")
	Role string

	// Attached reports whether the node is attached to a Thread partition
	Attached bool

	// NetworkName is the Thread network name
	NetworkName string

	// ExtPanID is the extended PAN ID as a 16-digit hex string
	ExtPanID string

	// ThreadVersion is the Thread protocol version constant
	ThreadVersion uint16

	// Uptime is the agent uptime in milliseconds
	Uptime int64

	// RadioURL is the configured radio URL
	RadioURL string

	// Running reports whether the agent loop is running
	Running bool
}

// AgentStatusProvider gives the control server read access to agent state
// and the one write operation it exposes: requesting a stack reset. Both
// methods must be safe to call from any goroutine.
type AgentStatusProvider interface {
	// GetStatus returns the current agent status snapshot
	GetStatus() AgentStatus

	// RequestReset flags the agent's controller for re-initialization.
	// Safe from any goroutine; the reset happens on the agent loop.
	RequestReset()
}
