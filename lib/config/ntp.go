package config

import "time"

// NTPConfig holds configuration for the startup clock sanity check. Border
// routers schedule absolute-time operations, so a badly skewed host clock is
// worth a warning; the check never blocks or aborts the agent.
type NTPConfig struct {
	// Enabled determines if the NTP check runs
	// Default: false
	Enabled bool

	// Servers are the NTP servers to query
	// Default: the pool.ntp.org rotation
	Servers []string

	// MaxOffset is the clock offset above which the agent logs a warning
	// Default: 10 seconds
	MaxOffset time.Duration

	// Timeout is the per-query timeout
	// Default: 10 seconds
	Timeout time.Duration
}

// DefaultNTPConfig provides defaults for the clock check, disabled unless
// explicitly turned on.
var DefaultNTPConfig = NTPConfig{
	Enabled:   false,
	Servers:   []string{"0.pool.ntp.org", "1.pool.ntp.org", "2.pool.ntp.org"},
	MaxOffset: 10 * time.Second,
	Timeout:   10 * time.Second,
}
