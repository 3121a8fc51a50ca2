package config

import (
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/viper"

	"github.com/go-otbr/go-otbr/lib/util"
	"github.com/go-otbr/go-otbr/lib/util/logger"
)

var (
	CfgFile string
	log     = logger.GetOTBRLogger()
)

const GOOTBR_BASE_DIR = ".go-otbr"

func InitConfig() {
	if CfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(CfgFile)
	} else {
		// Set up viper to use the default config path $HOME/.go-otbr/
		viper.AddConfigPath(BuildOTBRDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Load defaults
	setDefaults()

	// handle config file creating it if needed
	handleConfigFile()
}

func setDefaults() {
	agent := DefaultAgentConfig()

	// Agent defaults
	viper.SetDefault("thread_ifname", agent.InterfaceName)
	viper.SetDefault("radio_url", agent.RadioURL)
	viper.SetDefault("radio_config", agent.RadioConfig)
	viper.SetDefault("reset_radio", agent.ResetRadio)
	viper.SetDefault("speed_up_factor", agent.SpeedUpFactor)
	viper.SetDefault("data_dir", agent.DataDir)
	viper.SetDefault("log_level", agent.LogLevel)

	// Control server defaults
	viper.SetDefault("control.enabled", DefaultControlConfig.Enabled)
	viper.SetDefault("control.address", DefaultControlConfig.Address)
	viper.SetDefault("control.password", DefaultControlConfig.Password)
	viper.SetDefault("control.use_https", DefaultControlConfig.UseHTTPS)
	viper.SetDefault("control.cert_file", DefaultControlConfig.CertFile)
	viper.SetDefault("control.key_file", DefaultControlConfig.KeyFile)
	viper.SetDefault("control.token_expiration", DefaultControlConfig.TokenExpiration)

	// NTP check defaults
	viper.SetDefault("ntp.enabled", DefaultNTPConfig.Enabled)
	viper.SetDefault("ntp.servers", DefaultNTPConfig.Servers)
	viper.SetDefault("ntp.max_offset", DefaultNTPConfig.MaxOffset)
	viper.SetDefault("ntp.timeout", DefaultNTPConfig.Timeout)
}

// NewAgentConfigFromViper creates a new AgentConfig from current viper
// settings. This is the way to get config; there is no mutable global.
func NewAgentConfigFromViper() *AgentConfig {
	controlConfig := &ControlConfig{
		Enabled:         viper.GetBool("control.enabled"),
		Address:         viper.GetString("control.address"),
		Password:        viper.GetString("control.password"),
		UseHTTPS:        viper.GetBool("control.use_https"),
		CertFile:        viper.GetString("control.cert_file"),
		KeyFile:         viper.GetString("control.key_file"),
		TokenExpiration: viper.GetDuration("control.token_expiration"),
	}

	ntpConfig := &NTPConfig{
		Enabled:   viper.GetBool("ntp.enabled"),
		Servers:   viper.GetStringSlice("ntp.servers"),
		MaxOffset: viper.GetDuration("ntp.max_offset"),
		Timeout:   viper.GetDuration("ntp.timeout"),
	}

	return &AgentConfig{
		InterfaceName: viper.GetString("thread_ifname"),
		RadioURL:      viper.GetString("radio_url"),
		RadioConfig:   viper.GetString("radio_config"),
		ResetRadio:    viper.GetBool("reset_radio"),
		SpeedUpFactor: viper.GetUint32("speed_up_factor"),
		DataDir:       viper.GetString("data_dir"),
		LogLevel:      viper.GetString("log_level"),
		Control:       controlConfig,
		NTP:           ntpConfig,
	}
}

func createDefaultConfig(defaultConfigDir string) {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	// Ensure directory exists
	if err := CreateStandardDirectory(defaultConfigDir); err != nil {
		log.Fatalf("Could not create config directory: %s", err)
	}

	// Write the defaults out so the file is there to edit
	if err := viper.SafeWriteConfigAs(defaultConfigFile); err != nil {
		log.Fatalf("Could not write default config file: %s", err)
	}

	log.Debugf("Created default configuration at: %s", defaultConfigFile)
}

func handleConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if CfgFile != "" {
				log.Fatalf("Config file %s is not found: %s", CfgFile, err)
			} else {
				createDefaultConfig(BuildOTBRDirPath())
			}
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	} else {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// Reload re-reads the active config file. Used by the SIGHUP handler to pick
// up edits without restarting the agent.
func Reload() error {
	if err := viper.ReadInConfig(); err != nil {
		return oops.Errorf("reload config: %w", err)
	}
	return nil
}

func BuildOTBRDirPath() string {
	return filepath.Join(util.UserHome(), GOOTBR_BASE_DIR)
}
