package ntpcheck

import (
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
)

func TestValidateResponseAcceptsHealthyResponse(t *testing.T) {
	assert.True(t, validateResponse(validResponse(50*time.Millisecond)))
}

func TestValidateResponseRejectsUnsyncedLeap(t *testing.T) {
	r := validResponse(0)
	r.Leap = ntp.LeapNotInSync
	assert.False(t, validateResponse(r))
}

func TestValidateResponseRejectsBadStratum(t *testing.T) {
	r := validResponse(0)
	r.Stratum = 0
	assert.False(t, validateResponse(r), "stratum 0 is a kiss-of-death packet")

	r = validResponse(0)
	r.Stratum = 16
	assert.False(t, validateResponse(r), "stratum above 15 is unsynchronized")
}

func TestValidateResponseRejectsExcessiveRTT(t *testing.T) {
	r := validResponse(0)
	r.RTT = 3 * time.Second
	assert.False(t, validateResponse(r))
}

func TestValidateResponseRejectsExcessiveOffset(t *testing.T) {
	r := validResponse(30 * time.Second)
	assert.False(t, validateResponse(r))
}

func TestValidateResponseRejectsZeroTime(t *testing.T) {
	r := validResponse(0)
	r.Time = time.Time{}
	assert.False(t, validateResponse(r))
}

func TestValidateResponseRejectsRootMetrics(t *testing.T) {
	r := validResponse(0)
	r.RootDispersion = 2 * time.Second
	assert.False(t, validateResponse(r))

	r = validResponse(0)
	r.RootDelay = 2 * time.Second
	assert.False(t, validateResponse(r))
}
