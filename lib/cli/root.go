// Package cli wires the border router agent into a cobra command tree: the
// root command runs the agent against a radio URL, `status` opens the live
// dashboard, and `version` prints build information.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/go-otbr/go-otbr/lib/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigFile    string
	InterfaceName string
	DebugLevel    int
	Verbose       bool
}

// debugLevelUnset marks -d as not given; the config file level applies then.
const debugLevelUnset = -1

// NewRootCommand creates the go-otbr command tree. The root command itself
// runs the agent.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "go-otbr [flags] RADIO_URL [RADIO_CONFIG]",
		Short: "go-otbr - OpenThread border router agent",
		Long: `go-otbr runs a Thread border router agent on a POSIX host.

The agent drives an OpenThread stack over the radio named by RADIO_URL,
relays its state changes, and exposes a JSON-RPC control endpoint for
monitoring and resets.

Example:
  go-otbr -I wpan0 'sim://1' 'name=test-net panid=0x1234'
  go-otbr --config /etc/go-otbr.yaml 'sim://1'`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, opts, args)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "",
		"config file (default $HOME/"+config.GOOTBR_BASE_DIR+"/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"enable debug logging")
	cmd.Flags().StringVarP(&opts.InterfaceName, "thread-ifname", "I", "",
		"Thread network interface name")
	cmd.Flags().IntVarP(&opts.DebugLevel, "debug-level", "d", debugLevelUnset,
		"log level, syslog style (0=emerg .. 7=debug)")

	cmd.AddCommand(NewVersionCommand())
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}
