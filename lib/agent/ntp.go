package agent

import (
	"github.com/go-otbr/go-otbr/lib/util/logger"
	"github.com/go-otbr/go-otbr/lib/util/time/ntpcheck"
)

// startNTPCheck launches the background clock sanity checker if enabled. The
// checker feeds measured offsets into the controller's monotonic clock and
// warns when the host clock drifts past the configured threshold. Failures
// here are never fatal; a border router with a skewed clock still routes.
func (a *Agent) startNTPCheck() {
	if a.cfg.NTP == nil || !a.cfg.NTP.Enabled {
		log.WithFields(logger.Fields{
			"at":     "(Agent) startNTPCheck",
			"reason": "NTP check disabled in configuration",
		}).Debug("NTP check not starting")
		return
	}

	log.WithFields(logger.Fields{
		"at":      "(Agent) startNTPCheck",
		"phase":   "startup",
		"servers": a.cfg.NTP.Servers,
	}).Info("starting NTP clock check")

	checker := ntpcheck.NewChecker(&ntpcheck.DefaultNTPClient{}, a.cfg.NTP.Servers)
	checker.SetWarnThreshold(a.cfg.NTP.MaxOffset)
	checker.SetQueryTimeout(a.cfg.NTP.Timeout)
	checker.AddListener(a.controller.Clock())
	checker.Start()

	a.ntpChecker = checker

	log.WithFields(logger.Fields{
		"at":    "(Agent) startNTPCheck",
		"phase": "startup",
	}).Info("NTP clock check started")
}

// stopNTPCheck stops the background clock checker if one is running.
func (a *Agent) stopNTPCheck() {
	if a.ntpChecker == nil {
		log.WithFields(logger.Fields{
			"at":     "(Agent) stopNTPCheck",
			"reason": "NTP check not running",
		}).Debug("no NTP check to stop")
		return
	}

	log.WithFields(logger.Fields{
		"at":    "(Agent) stopNTPCheck",
		"phase": "shutdown",
	}).Info("stopping NTP clock check")

	a.ntpChecker.Stop()
	a.ntpChecker = nil

	log.WithFields(logger.Fields{
		"at":    "(Agent) stopNTPCheck",
		"phase": "shutdown",
	}).Info("NTP clock check stopped")
}
