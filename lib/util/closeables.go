package util

import (
	"io"
	"sync"

	"github.com/go-otbr/go-otbr/lib/util/logger"
)

// Process-wide shutdown registry. The CLI registers long-lived resources
// (the agent, network listeners) and drains them once on exit.
var (
	closersMu sync.Mutex
	closers   []io.Closer
)

// RegisterCloser adds c to the shutdown registry. Safe for concurrent use.
func RegisterCloser(c io.Closer) {
	closersMu.Lock()
	defer closersMu.Unlock()
	closers = append(closers, c)
	log.WithFields(logger.Fields{
		"at":    "RegisterCloser",
		"count": len(closers),
	}).Debug("registered closer")
}

// CloseAll closes every registered resource in reverse registration order,
// so dependents go down before what they depend on, then clears the
// registry. Close errors are logged and do not stop the drain.
func CloseAll() {
	closersMu.Lock()
	defer closersMu.Unlock()

	log.WithFields(logger.Fields{
		"at":    "CloseAll",
		"count": len(closers),
	}).Debug("draining shutdown registry")

	for idx := len(closers) - 1; idx >= 0; idx-- {
		if err := closers[idx].Close(); err != nil {
			log.WithError(err).Warn("error closing resource during shutdown")
		}
	}
	closers = nil
}
