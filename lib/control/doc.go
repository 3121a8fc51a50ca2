// Package control implements a JSON-RPC 2.0 server for monitoring and
// controlling a running border router agent. It is the programmatic analog
// of the process's signal interface: clients can read the agent's Thread
// status and request a stack reset without touching the agent's event loop.
//
// # Overview
//
// The server exposes a small authenticated HTTP endpoint, bound to
// localhost by default. All state flows through the AgentStatusProvider
// interface as plain value snapshots; handlers never reach into the stack
// instance, which stays owned by the agent's loop goroutine.
//
// # Features
//
//   - JSON-RPC 2.0 compliant API
//   - Token-based authentication with HMAC-SHA256
//   - HTTP and HTTPS transport
//   - Request rate limiting (JSON-RPC error -32005 when exceeded)
//   - Thread-safe concurrent access
//
// # Quick Start
//
// Enable the control server in your config.yaml:
//
//	control:
//	  enabled: true
//	  address: "localhost:49191"
//	  password: "your-secure-password"
//	  use_https: false
//	  token_expiration: 10m
//
// The server integrates with the agent lifecycle and starts when the agent
// starts (if enabled).
//
// # Usage Example
//
//	cfg := &config.ControlConfig{
//	    Enabled:         true,
//	    Address:         "localhost:49191",
//	    Password:        "my-password",
//	    TokenExpiration: 10 * time.Minute,
//	}
//
//	// status is typically the running *agent.Agent
//	server, err := control.NewServer(cfg, status)
//	if err != nil {
//	    return err
//	}
//	if err := server.Start(); err != nil {
//	    return err
//	}
//	defer server.Stop()
//
// # Authentication
//
// Clients authenticate once with the configured password and receive a
// token for subsequent requests:
//
//	{"jsonrpc": "2.0", "id": 1, "method": "Authenticate",
//	 "params": {"API": 1, "Password": "my-password"}}
//
// The response carries a Token that must be included in the params of every
// other method call. Tokens expire after the configured token_expiration
// and are revoked when the password changes.
//
// # Supported Methods
//
//   - Echo: returns the "Echo" parameter unchanged (connectivity test)
//   - Authenticate: validates the password and returns a token
//   - AgentStatus: returns agent status fields (role, attachment state,
//     network name, extended PAN ID, Thread version, uptime, radio URL)
//   - AgentReset: flags the agent's stack for re-initialization
//   - Control: changes the control server password
//
// # Error Codes
//
// Standard JSON-RPC 2.0 codes plus implementation-defined codes in the
// -32000 to -32099 range: -32000 (auth required), -32001 (auth failed),
// -32002 (not implemented), -32005 (rate limited).
//
// # Security Considerations
//
// The endpoint binds to localhost by default and should stay there unless
// fronted by TLS (use_https with cert_file/key_file). The default password
// triggers a startup warning; change it in production. Rate limiting caps
// password guessing but is not a substitute for a strong password.
package control
