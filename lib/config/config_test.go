package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestNewAgentConfigFromViperDefaultsRoundTrip verifies that every default
// set via setDefaults() is read back by NewAgentConfigFromViper from the
// same viper key. This catches key mismatches between SetDefault and Get
// calls.
func TestNewAgentConfigFromViperDefaultsRoundTrip(t *testing.T) {
	// Reset viper to clear any state from other tests
	viper.Reset()
	setDefaults()

	cfg := NewAgentConfigFromViper()
	defaults := DefaultAgentConfig()

	// Agent section
	if cfg.InterfaceName != defaults.InterfaceName {
		t.Errorf("InterfaceName mismatch: got %q, want %q", cfg.InterfaceName, defaults.InterfaceName)
	}
	if cfg.RadioURL != defaults.RadioURL {
		t.Errorf("RadioURL mismatch: got %q, want %q", cfg.RadioURL, defaults.RadioURL)
	}
	if cfg.ResetRadio != defaults.ResetRadio {
		t.Errorf("ResetRadio mismatch: got %v, want %v", cfg.ResetRadio, defaults.ResetRadio)
	}
	if cfg.SpeedUpFactor != defaults.SpeedUpFactor {
		t.Errorf("SpeedUpFactor mismatch: got %d, want %d", cfg.SpeedUpFactor, defaults.SpeedUpFactor)
	}
	if cfg.DataDir != defaults.DataDir {
		t.Errorf("DataDir mismatch: got %q, want %q", cfg.DataDir, defaults.DataDir)
	}
	if cfg.LogLevel != defaults.LogLevel {
		t.Errorf("LogLevel mismatch: got %q, want %q", cfg.LogLevel, defaults.LogLevel)
	}

	// Control section
	if cfg.Control.Enabled != defaults.Control.Enabled {
		t.Errorf("Control.Enabled mismatch: got %v, want %v", cfg.Control.Enabled, defaults.Control.Enabled)
	}
	if cfg.Control.Address != defaults.Control.Address {
		t.Errorf("Control.Address mismatch: got %q, want %q", cfg.Control.Address, defaults.Control.Address)
	}
	if cfg.Control.Password != defaults.Control.Password {
		t.Errorf("Control.Password mismatch: got %q, want %q", cfg.Control.Password, defaults.Control.Password)
	}
	if cfg.Control.TokenExpiration != defaults.Control.TokenExpiration {
		t.Errorf("Control.TokenExpiration mismatch: got %v, want %v",
			cfg.Control.TokenExpiration, defaults.Control.TokenExpiration)
	}

	// NTP section
	if cfg.NTP.Enabled != defaults.NTP.Enabled {
		t.Errorf("NTP.Enabled mismatch: got %v, want %v", cfg.NTP.Enabled, defaults.NTP.Enabled)
	}
	if len(cfg.NTP.Servers) != len(defaults.NTP.Servers) {
		t.Errorf("NTP.Servers mismatch: got %v, want %v", cfg.NTP.Servers, defaults.NTP.Servers)
	}
	if cfg.NTP.MaxOffset != defaults.NTP.MaxOffset {
		t.Errorf("NTP.MaxOffset mismatch: got %v, want %v", cfg.NTP.MaxOffset, defaults.NTP.MaxOffset)
	}
	if cfg.NTP.Timeout != defaults.NTP.Timeout {
		t.Errorf("NTP.Timeout mismatch: got %v, want %v", cfg.NTP.Timeout, defaults.NTP.Timeout)
	}
}

// TestNewAgentConfigFromViperOverrides verifies that values can be
// overridden through viper, confirming the keys are correct.
func TestNewAgentConfigFromViperOverrides(t *testing.T) {
	viper.Reset()
	setDefaults()

	viper.Set("thread_ifname", "wpan1")
	viper.Set("radio_url", "sim://2")
	viper.Set("speed_up_factor", 100)
	viper.Set("reset_radio", false)
	viper.Set("log_level", "debug")
	viper.Set("control.enabled", false)
	viper.Set("control.address", "0.0.0.0:49999")
	viper.Set("control.token_expiration", 30*time.Minute)
	viper.Set("ntp.enabled", true)
	viper.Set("ntp.servers", []string{"ntp.example.org"})
	viper.Set("ntp.max_offset", 2*time.Second)

	cfg := NewAgentConfigFromViper()

	if cfg.InterfaceName != "wpan1" {
		t.Errorf("InterfaceName override failed: got %q", cfg.InterfaceName)
	}
	if cfg.RadioURL != "sim://2" {
		t.Errorf("RadioURL override failed: got %q", cfg.RadioURL)
	}
	if cfg.SpeedUpFactor != 100 {
		t.Errorf("SpeedUpFactor override failed: got %d", cfg.SpeedUpFactor)
	}
	if cfg.ResetRadio {
		t.Error("ResetRadio override failed: still true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel override failed: got %q", cfg.LogLevel)
	}
	if cfg.Control.Enabled {
		t.Error("Control.Enabled override failed: still true")
	}
	if cfg.Control.Address != "0.0.0.0:49999" {
		t.Errorf("Control.Address override failed: got %q", cfg.Control.Address)
	}
	if cfg.Control.TokenExpiration != 30*time.Minute {
		t.Errorf("Control.TokenExpiration override failed: got %v", cfg.Control.TokenExpiration)
	}
	if !cfg.NTP.Enabled {
		t.Error("NTP.Enabled override failed: still false")
	}
	if len(cfg.NTP.Servers) != 1 || cfg.NTP.Servers[0] != "ntp.example.org" {
		t.Errorf("NTP.Servers override failed: got %v", cfg.NTP.Servers)
	}
	if cfg.NTP.MaxOffset != 2*time.Second {
		t.Errorf("NTP.MaxOffset override failed: got %v", cfg.NTP.MaxOffset)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	cfg := NewAgentConfigFromViper()
	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration should validate, got: %s", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AgentConfig)
	}{
		{"missing ifname", func(c *AgentConfig) { c.InterfaceName = "" }},
		{"zero speedup", func(c *AgentConfig) { c.SpeedUpFactor = 0 }},
		{"control without address", func(c *AgentConfig) { c.Control.Address = "" }},
		{"https without cert", func(c *AgentConfig) { c.Control.UseHTTPS = true; c.Control.KeyFile = "k" }},
		{"https without key", func(c *AgentConfig) { c.Control.UseHTTPS = true; c.Control.CertFile = "c" }},
		{"short token expiration", func(c *AgentConfig) { c.Control.TokenExpiration = 30 * time.Second }},
		{"ntp without servers", func(c *AgentConfig) { c.NTP.Enabled = true; c.NTP.Servers = nil }},
		{"tiny ntp max offset", func(c *AgentConfig) { c.NTP.Enabled = true; c.NTP.MaxOffset = 100 * time.Millisecond }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			viper.Reset()
			setDefaults()
			cfg := NewAgentConfigFromViper()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateSkipsDisabledSections(t *testing.T) {
	viper.Reset()
	setDefaults()
	cfg := NewAgentConfigFromViper()

	// A disabled section is not validated: bad values there are inert.
	cfg.Control.Enabled = false
	cfg.Control.TokenExpiration = 0
	cfg.NTP.Enabled = false
	cfg.NTP.Servers = nil

	if err := Validate(cfg); err != nil {
		t.Errorf("disabled sections should not be validated, got: %s", err)
	}
}

func TestCreateDefaultConfigWritesFile(t *testing.T) {
	viper.Reset()
	setDefaults()

	dir := filepath.Join(t.TempDir(), "fresh")
	createDefaultConfig(dir)

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("expected config.yaml to exist: %s", err)
	}
}
