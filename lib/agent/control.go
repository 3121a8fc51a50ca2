package agent

import (
	"github.com/go-otbr/go-otbr/lib/control"
	"github.com/go-otbr/go-otbr/lib/util/logger"
)

// startControlServer initializes and starts the agent control RPC server if
// enabled. The server provides a JSON-RPC 2.0 interface for monitoring the
// agent and requesting stack resets.
func (a *Agent) startControlServer() error {
	if a.cfg.Control == nil || !a.cfg.Control.Enabled {
		log.WithFields(logger.Fields{
			"at":     "(Agent) startControlServer",
			"reason": "control server disabled in configuration",
		}).Debug("control server not starting")
		return nil
	}

	log.WithFields(logger.Fields{
		"at":      "(Agent) startControlServer",
		"phase":   "startup",
		"address": a.cfg.Control.Address,
		"https":   a.cfg.Control.UseHTTPS,
	}).Info("starting control server")

	// The agent itself is the status provider; handlers read the cache, not
	// the stack instance.
	server, err := control.NewServer(a.cfg.Control, a)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(Agent) startControlServer",
			"phase":  "startup",
			"reason": "failed to create control server",
		}).Error("control server initialization failed")
		return err
	}

	if err := server.Start(); err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"at":     "(Agent) startControlServer",
			"phase":  "startup",
			"reason": "failed to start control server",
		}).Error("control server startup failed")
		return err
	}

	a.controlServer = server

	log.WithFields(logger.Fields{
		"at":      "(Agent) startControlServer",
		"phase":   "startup",
		"address": a.cfg.Control.Address,
	}).Info("control server started successfully")

	return nil
}

// stopControlServer gracefully shuts down the control RPC server. Called
// during agent teardown to ensure clean termination.
func (a *Agent) stopControlServer() {
	if a.controlServer == nil {
		log.WithFields(logger.Fields{
			"at":     "(Agent) stopControlServer",
			"reason": "control server not running",
		}).Debug("no control server to stop")
		return
	}

	log.WithFields(logger.Fields{
		"at":    "(Agent) stopControlServer",
		"phase": "shutdown",
	}).Info("stopping control server")

	a.controlServer.Stop()
	a.controlServer = nil

	log.WithFields(logger.Fields{
		"at":    "(Agent) stopControlServer",
		"phase": "shutdown",
	}).Info("control server stopped")
}
