package ntpcheck

import (
	"time"

	"github.com/beevik/ntp"
)

const (
	maxRTT            = 2 * time.Second  // Max acceptable round-trip time
	maxClockOffset    = 10 * time.Second // Max acceptable clock offset
	maxRootDispersion = 1 * time.Second  // Max acceptable root dispersion
	maxRootDelay      = 1 * time.Second  // Max acceptable root delay
)

// validateResponse validates the NTP response against multiple criteria:
// leap indicator, stratum level, timing metrics, time value, and root metrics.
func validateResponse(response *ntp.Response) bool {
	if !validateLeapAndStratum(response) {
		return false
	}
	if !validateTimingMetrics(response) {
		return false
	}
	if !validateTimeValue(response) {
		return false
	}
	if !validateRootMetrics(response) {
		return false
	}
	return true
}

// validateLeapAndStratum checks the leap indicator and stratum level.
func validateLeapAndStratum(response *ntp.Response) bool {
	if response.Leap == ntp.LeapNotInSync {
		log.Debug("Invalid NTP response: server clock not synchronized (leap indicator)")
		return false
	}
	if response.Stratum == 0 || response.Stratum > 15 {
		log.WithField("stratum", response.Stratum).Debug("Invalid NTP response: stratum out of valid range")
		return false
	}
	return true
}

// validateTimingMetrics checks round-trip delay and clock offset bounds.
func validateTimingMetrics(response *ntp.Response) bool {
	if response.RTT < 0 || response.RTT > maxRTT {
		log.WithField("rtt", response.RTT).Debug("Invalid NTP response: round-trip delay out of bounds")
		return false
	}
	if absDuration(response.ClockOffset) > maxClockOffset {
		log.WithField("offset", response.ClockOffset).Debug("Invalid NTP response: clock offset out of bounds")
		return false
	}
	return true
}

// validateTimeValue ensures the response time is not zero.
func validateTimeValue(response *ntp.Response) bool {
	if response.Time.IsZero() {
		log.Debug("Invalid NTP response: received zero time")
		return false
	}
	return true
}

// validateRootMetrics checks root dispersion and root delay thresholds.
func validateRootMetrics(response *ntp.Response) bool {
	if response.RootDispersion > maxRootDispersion {
		log.WithField("dispersion", response.RootDispersion).Debug("Invalid NTP response: root dispersion too high")
		return false
	}
	if response.RootDelay > maxRootDelay {
		log.WithField("delay", response.RootDelay).Debug("Invalid NTP response: root delay too high")
		return false
	}
	return true
}
