package config

import (
	"path/filepath"
)

// AgentConfig is the root configuration for the agent process.
type AgentConfig struct {
	// the Thread network interface name published for this node
	InterfaceName string
	// the radio URL selecting and configuring the stack driver
	RadioURL string
	// extra driver configuration passed through to the stack driver
	RadioConfig string
	// whether to reset the radio during startup
	ResetRadio bool
	// divider applied to simulated timer durations; real radios ignore it
	SpeedUpFactor uint32
	// where stack drivers persist their settings
	DataDir string
	// log level: debug, info, warn or error
	LogLevel string
	// control server configuration
	Control *ControlConfig
	// NTP clock check configuration
	NTP *NTPConfig
}

func defaultDataDir() string {
	return filepath.Join(BuildOTBRDirPath(), "data")
}

// DefaultAgentConfig returns the defaults for the agent. The radio URL is
// empty on purpose: it normally arrives as a command line positional.
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		InterfaceName: "wpan0",
		RadioURL:      "",
		RadioConfig:   "",
		ResetRadio:    true,
		SpeedUpFactor: 1,
		DataDir:       defaultDataDir(),
		LogLevel:      "info",
		Control:       &DefaultControlConfig,
		NTP:           &DefaultNTPConfig,
	}
}
