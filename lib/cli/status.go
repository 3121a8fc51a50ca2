package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-otbr/go-otbr/lib/config"
	"github.com/go-otbr/go-otbr/lib/console"
)

// NewStatusCommand creates the status command: a live dashboard over a
// running agent's control endpoint.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		endpoint string
		password string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a live dashboard for a running agent",
		Long: `status connects to a running agent's control endpoint and renders a
live dashboard of its Thread state: role, attachment, network identity,
and uptime. Endpoint and password default to the configured control
server settings.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.CfgFile = rootOpts.ConfigFile
			config.InitConfig()
			cfg := config.NewAgentConfigFromViper()

			if endpoint == "" {
				endpoint = controlEndpoint(cfg.Control.Address, cfg.Control.UseHTTPS)
			}
			if password == "" {
				password = cfg.Control.Password
			}
			return console.Run(endpoint, password)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "",
		"control endpoint URL (default from config)")
	cmd.Flags().StringVar(&password, "password", "",
		"control password (default from config)")

	return cmd
}

// controlEndpoint builds the JSON-RPC URL for a control server address.
func controlEndpoint(address string, useHTTPS bool) string {
	scheme := "http"
	if useHTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/jsonrpc", scheme, address)
}
