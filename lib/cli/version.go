package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the agent version, overridable at build time:
//
//	go build -ldflags "-X github.com/go-otbr/go-otbr/lib/cli.Version=1.2.3"
var Version = "0.1.0"

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "go-otbr %s (%s %s/%s)\n",
				Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
