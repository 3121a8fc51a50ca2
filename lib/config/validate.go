package config

import (
	"time"

	"github.com/go-otbr/go-otbr/lib/util/logger"
)

// Validate checks if the provided configuration values are reasonable.
// Returns an error describing the first invalid value found.
func Validate(cfg *AgentConfig) error {
	log.WithFields(logger.Fields{
		"at":     "config.Validate",
		"reason": "verification_requested",
	}).Debug("validating agent configuration")

	validators := []func() error{
		func() error { return validateAgent(cfg) },
		func() error { return validateControl(cfg.Control) },
		func() error { return validateNTP(cfg.NTP) },
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			log.WithError(err).Error("Configuration validation failed")
			return err
		}
	}
	return nil
}

func validateAgent(cfg *AgentConfig) error {
	if cfg.InterfaceName == "" {
		log.WithFields(logger.Fields{
			"at":     "validateAgent",
			"reason": "missing_thread_ifname",
		}).Error("invalid agent configuration")
		return newValidationError("thread_ifname must be set")
	}
	if cfg.SpeedUpFactor < 1 {
		log.WithFields(logger.Fields{
			"at":              "validateAgent",
			"reason":          "speed_up_factor_too_low",
			"speed_up_factor": cfg.SpeedUpFactor,
		}).Error("invalid agent configuration")
		return newValidationError("speed_up_factor must be at least 1")
	}
	return nil
}

func validateControl(control *ControlConfig) error {
	if control == nil || !control.Enabled {
		return nil
	}

	if control.Address == "" {
		log.WithFields(logger.Fields{
			"at":     "validateControl",
			"reason": "missing_address",
		}).Error("invalid control configuration")
		return newValidationError("control.address must be set when the control server is enabled")
	}

	// If HTTPS is enabled, cert and key files must be provided
	if control.UseHTTPS {
		if control.CertFile == "" {
			log.WithFields(logger.Fields{
				"at":     "validateControl",
				"reason": "missing_cert_file",
			}).Error("invalid control configuration")
			return newValidationError("control.cert_file must be set when use_https is enabled")
		}
		if control.KeyFile == "" {
			log.WithFields(logger.Fields{
				"at":     "validateControl",
				"reason": "missing_key_file",
			}).Error("invalid control configuration")
			return newValidationError("control.key_file must be set when use_https is enabled")
		}
	}

	// Token expiration must be at least 1 minute
	if control.TokenExpiration < 1*time.Minute {
		log.WithFields(logger.Fields{
			"at":               "validateControl",
			"reason":           "token_expiration_too_low",
			"token_expiration": control.TokenExpiration,
			"minimum_required": "1m",
		}).Error("invalid control configuration")
		return newValidationError("control.token_expiration must be at least 1 minute")
	}
	return nil
}

func validateNTP(ntp *NTPConfig) error {
	if ntp == nil || !ntp.Enabled {
		return nil
	}

	if len(ntp.Servers) == 0 {
		log.WithFields(logger.Fields{
			"at":     "validateNTP",
			"reason": "no_servers",
		}).Error("invalid ntp configuration")
		return newValidationError("ntp.servers must list at least one server when the check is enabled")
	}
	if ntp.MaxOffset < time.Second {
		log.WithFields(logger.Fields{
			"at":         "validateNTP",
			"reason":     "max_offset_too_low",
			"max_offset": ntp.MaxOffset,
		}).Error("invalid ntp configuration")
		return newValidationError("ntp.max_offset must be at least 1 second")
	}
	return nil
}

// validationError is returned when configuration validation fails
type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}
