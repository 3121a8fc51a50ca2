package config

import "time"

// DefaultControlPort is the agent control RPC port.
const DefaultControlPort = 49191

// ControlConfig holds configuration for the agent control JSON-RPC server.
// The control server is the management surface of the agent: it exposes
// status queries and the reset operation over a standardized JSON-RPC 2.0
// API, replacing direct access to the stack instance from other processes.
type ControlConfig struct {
	// Enabled determines if the control server should start
	// Default: true (enabled for development and monitoring)
	Enabled bool

	// Address is the listen address for the control server
	// Format: "host:port" (e.g., "localhost:49191", "0.0.0.0:49191")
	// Default: "localhost:49191"
	// Security: Binding to 0.0.0.0 exposes the server to all network interfaces
	Address string

	// Password is used for token-based authentication
	// Clients must authenticate with this password to receive an access token
	// IMPORTANT: Change this in production environments!
	Password string

	// UseHTTPS enables TLS/HTTPS for encrypted communication
	// Default: false (HTTP only)
	// Recommended: true for any non-localhost deployment
	UseHTTPS bool

	// CertFile is the path to the TLS certificate file
	// Required when UseHTTPS is true
	// Format: PEM-encoded X.509 certificate
	CertFile string

	// KeyFile is the path to the TLS private key file
	// Required when UseHTTPS is true
	// Format: PEM-encoded private key
	KeyFile string

	// TokenExpiration is how long authentication tokens remain valid
	// Default: 10 minutes
	// Expired tokens must re-authenticate to get a new token
	TokenExpiration time.Duration
}

// DefaultControlConfig provides sensible defaults for the control server:
// localhost-only binding, HTTP only, and a default password that should be
// changed anywhere it matters.
var DefaultControlConfig = ControlConfig{
	Enabled:         true,
	Address:         "localhost:49191",
	Password:        "go-otbr",
	UseHTTPS:        false,
	CertFile:        "",
	KeyFile:         "",
	TokenExpiration: 10 * time.Minute,
}
