//go:build windows
// +build windows

package signals

import (
	"os"
	"os/signal"
)

func init() {
	signal.Notify(sigChan, os.Interrupt)
}

// Handle blocks dispatching signals until StopHandle closes the channel.
// Windows has no SIGHUP; config reload is restart-only there.
func Handle() {
	for sig := range sigChan {
		if sig == os.Interrupt {
			handlePreShutdown()
			handleInterrupted()
		}
	}
}
