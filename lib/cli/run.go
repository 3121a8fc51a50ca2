package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/go-otbr/go-otbr/lib/agent"
	"github.com/go-otbr/go-otbr/lib/config"
	"github.com/go-otbr/go-otbr/lib/util"
	"github.com/go-otbr/go-otbr/lib/util/logger"
	"github.com/go-otbr/go-otbr/lib/util/signals"
)

var log = logger.GetOTBRLogger()

// runAgent resolves configuration, builds the agent, and drives it until a
// signal or context cancellation stops it.
func runAgent(cmd *cobra.Command, opts *RootOptions, args []string) error {
	config.CfgFile = opts.ConfigFile
	config.InitConfig()

	cfg := config.NewAgentConfigFromViper()
	cfg.RadioURL = args[0]
	if len(args) > 1 {
		cfg.RadioConfig = args[1]
	}
	if opts.InterfaceName != "" {
		cfg.InterfaceName = opts.InterfaceName
	}
	cfg.LogLevel = resolveLogLevel(opts.Verbose, opts.DebugLevel, cfg.LogLevel)
	logger.SetLevelString(cfg.LogLevel)

	if err := config.Validate(cfg); err != nil {
		return err
	}

	a, err := agent.NewAgent(cfg)
	if err != nil {
		return err
	}
	if err := a.Init(); err != nil {
		return err
	}
	util.RegisterCloser(a)
	defer util.CloseAll()

	go signals.Handle()
	defer signals.StopHandle()

	reloadID := signals.RegisterReloadHandler(func() {
		if err := config.Reload(); err != nil {
			log.WithError(err).Warn("configuration reload failed")
			return
		}
		fresh := config.NewAgentConfigFromViper()
		logger.SetLevelString(fresh.LogLevel)
		log.WithField("level", fresh.LogLevel).Info("configuration reloaded")
	})
	defer signals.DeregisterReloadHandler(reloadID)

	interruptID := signals.RegisterInterruptHandler(a.Stop)
	defer signals.DeregisterInterruptHandler(interruptID)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return a.Run(ctx)
}

// resolveLogLevel picks the effective log level. --verbose wins, then the
// syslog-style -d level, then the configured level.
func resolveLogLevel(verbose bool, debugLevel int, configured string) string {
	if verbose {
		return "debug"
	}
	if debugLevel == debugLevelUnset {
		return configured
	}
	return syslogLevelName(debugLevel)
}

// syslogLevelName maps a syslog severity (0..7) onto a logger level name.
// Out-of-range values clamp to the nearest end.
func syslogLevelName(level int) string {
	switch {
	case level <= 3:
		return "error"
	case level == 4:
		return "warn"
	case level <= 6:
		return "info"
	default:
		return "debug"
	}
}
