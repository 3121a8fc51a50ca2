// Package monotonic keeps agent timekeeping stable across wall-clock steps.
//
// The agent watches the host clock for NTP skew and may see it corrected
// while running. Durations measured between two time.Now() values ride Go's
// monotonic reading and ignore such corrections, but that protection is lost
// the moment a timestamp crosses a process boundary (persisted, received, or
// rebuilt from a wall-clock value). An expiry computed against a rebuilt
// timestamp can fire years early or never.
//
// Deadline owns its start instant, taken with time.Now() inside the same
// process, and answers expiry through time.Since, so a stepped clock cannot
// stretch or shrink a lifetime. Control session tokens and commissioning
// windows are measured this way:
//
//	deadline := monotonic.NewDeadline(tokenExpiration)
//	// on each authenticated request:
//	if deadline.IsExpired() {
//	    // session over, regardless of what NTP did meanwhile
//	}
//
// Clock layers a settable offset on top of time.Now for components that want
// to observe the measured NTP offset without ever stepping their own timers.
package monotonic
