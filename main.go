package main

import (
	"fmt"
	"os"

	"github.com/go-otbr/go-otbr/lib/cli"

	// Radio drivers register their URL schemes on import.
	_ "github.com/go-otbr/go-otbr/lib/openthread/sim"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "go-otbr: %s\n", err)
		os.Exit(1)
	}
}
