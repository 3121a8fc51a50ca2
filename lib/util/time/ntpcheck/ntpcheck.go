// Package ntpcheck keeps an eye on the host wall clock. Thread commissioning
// sessions and service registration leases assume a sane system time, so the
// agent periodically samples NTP servers, derives a median clock offset, and
// hands it to registered listeners (typically a monotonic.Clock).
package ntpcheck

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/beevik/ntp"

	"github.com/go-otbr/go-otbr/lib/util/logger"
)

var log = logger.GetOTBRLogger()

// NTPClient abstracts the NTP query so tests can inject a fake.
type NTPClient interface {
	QueryWithOptions(host string, options ntp.QueryOptions) (*ntp.Response, error)
}

type DefaultNTPClient struct{}

func (c *DefaultNTPClient) QueryWithOptions(host string, options ntp.QueryOptions) (*ntp.Response, error) {
	return ntp.QueryWithOptions(host, options)
}

// OffsetListener receives clock offset updates after each successful check.
// monotonic.Clock satisfies this interface directly.
type OffsetListener interface {
	SetOffset(offset time.Duration)
}

// Checker periodically measures the offset between the host clock and a pool
// of NTP servers. It never steps the system clock; consumers decide what to
// do with the offset.
type Checker struct {
	servers          []string
	listeners        []OffsetListener
	queryFrequency   time.Duration
	samples          int
	consecutiveFails int
	initialized      bool
	wellSynced       bool
	isRunning        bool
	mutex            sync.Mutex
	stopChan         chan struct{}
	stopOnce         sync.Once
	waitGroup        sync.WaitGroup
	ntpClient        NTPClient
	offset           time.Duration
	warnThreshold    time.Duration
	queryTimeout     time.Duration
	// initChan is closed exactly once when the first query cycle completes.
	// WaitForInitialization blocks on this channel instead of busy-polling.
	initChan chan struct{}
}

const (
	minQueryFrequency     = 5 * time.Minute
	defaultQueryFrequency = 11 * time.Minute
	defaultServerList     = "0.pool.ntp.org,1.pool.ntp.org,2.pool.ntp.org"
	defaultSamples        = 3
	maxConsecutiveFails   = 10
	defaultTimeout        = 10 * time.Second
	maxWaitInitialization = 45 * time.Second
	maxVariance           = 10 * time.Second

	// skewWarnThreshold is the offset beyond which the agent starts warning.
	// Commissioner sessions tolerate far less drift than this.
	skewWarnThreshold = 5 * time.Second

	// wellSyncedThreshold marks the host clock as trustworthy.
	wellSyncedThreshold = 500 * time.Millisecond
)

// NewChecker builds a Checker querying the given servers. An empty server
// list falls back to the public NTP pool.
func NewChecker(client NTPClient, servers []string) *Checker {
	c := &Checker{
		listeners:      []OffsetListener{},
		queryFrequency: defaultQueryFrequency,
		samples:        defaultSamples,
		stopChan:       make(chan struct{}),
		ntpClient:      client,
		warnThreshold:  skewWarnThreshold,
		queryTimeout:   defaultTimeout,
		initChan:       make(chan struct{}),
	}
	c.setServers(servers)
	c.validateConfigBounds()
	return c
}

// SetWarnThreshold overrides the offset above which the checker warns.
// Non-positive values are ignored.
func (c *Checker) SetWarnThreshold(threshold time.Duration) {
	if threshold <= 0 {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.warnThreshold = threshold
}

// SetQueryTimeout overrides the per-query timeout. Non-positive values are
// ignored.
func (c *Checker) SetQueryTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.queryTimeout = timeout
}

func (c *Checker) setServers(servers []string) {
	if len(servers) == 0 {
		servers = strings.Split(defaultServerList, ",")
	}
	c.servers = make([]string, 0, len(servers))
	for _, server := range servers {
		server = strings.TrimSpace(server)
		if server != "" {
			c.servers = append(c.servers, server)
		}
	}
}

// validateConfigBounds clamps query frequency and sample count into sane ranges.
func (c *Checker) validateConfigBounds() {
	if c.queryFrequency < minQueryFrequency {
		c.queryFrequency = minQueryFrequency
	}
	if c.samples < 1 {
		c.samples = 1
	} else if c.samples > 4 {
		c.samples = 4
	}
}

func (c *Checker) Start() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.isRunning {
		return
	}
	c.isRunning = true
	c.waitGroup.Add(1)
	go c.run()
}

func (c *Checker) Stop() {
	c.mutex.Lock()
	if !c.isRunning {
		c.mutex.Unlock()
		return
	}
	c.isRunning = false
	c.mutex.Unlock()
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	c.waitGroup.Wait()
}

func (c *Checker) AddListener(listener OffsetListener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.listeners = append(c.listeners, listener)
}

func (c *Checker) RemoveListener(listener OffsetListener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for i, l := range c.listeners {
		if l == listener {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			break
		}
	}
}

// WaitForInitialization blocks until the first query cycle has finished or a
// fixed timeout expires, whichever comes first.
func (c *Checker) WaitForInitialization() {
	select {
	case <-c.initChan:
		// First cycle completed
	case <-time.After(maxWaitInitialization):
		// Timeout expired
	}
}

// CheckNow triggers an immediate asynchronous query cycle.
func (c *Checker) CheckNow() {
	c.mutex.Lock()
	canRun := c.initialized && c.isRunning
	c.mutex.Unlock()
	if canRun {
		go c.performQuery()
	}
}

// Offset returns the most recently measured clock offset.
func (c *Checker) Offset() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.offset
}

// WellSynced reports whether the last measurement put the host clock within
// the trusted threshold.
func (c *Checker) WellSynced() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.wellSynced
}

// Servers returns a copy of the configured server list.
func (c *Checker) Servers() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	servers := make([]string, len(c.servers))
	copy(servers, c.servers)
	return servers
}

func (c *Checker) run() {
	defer c.waitGroup.Done()
	for {
		c.mutex.Lock()
		running := c.isRunning
		c.mutex.Unlock()
		if !running {
			return
		}
		lastFailed := !c.performQuery()
		sleepTime := c.calculateSleepDuration(lastFailed)

		if !c.waitWithCancellation(sleepTime) {
			return
		}
	}
}

// calculateSleepDuration determines the next query delay. Repeated failures
// back off hard; a well synced clock is rechecked less often.
func (c *Checker) calculateSleepDuration(lastFailed bool) time.Duration {
	c.mutex.Lock()
	if lastFailed {
		c.consecutiveFails++
		if c.consecutiveFails >= maxConsecutiveFails {
			c.mutex.Unlock()
			return 30 * time.Minute
		}
		c.mutex.Unlock()
		return 30 * time.Second
	}

	c.consecutiveFails = 0
	wellSynced := c.wellSynced
	c.mutex.Unlock()

	randomDelay := time.Duration(rand.Int63n(int64(c.queryFrequency / 2)))
	sleepTime := c.queryFrequency + randomDelay
	if wellSynced {
		sleepTime *= 3
	}
	return sleepTime
}

// waitWithCancellation waits for the specified duration or until Stop is
// called. Returns true if the wait completed normally, false if cancelled.
func (c *Checker) waitWithCancellation(duration time.Duration) bool {
	select {
	case <-time.After(duration):
		return true
	case <-c.stopChan:
		return false
	}
}

// performQuery samples the configured servers, derives a median offset and
// publishes it. Returns true on success.
func (c *Checker) performQuery() bool {
	servers := c.Servers()
	c.mutex.Lock()
	timeout := c.queryTimeout
	c.mutex.Unlock()
	ok := c.queryOffset(servers, timeout)
	c.markInitialized()
	return ok
}

func (c *Checker) markInitialized() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.initialized {
		c.initialized = true
		// Close initChan to unblock all goroutines waiting in
		// WaitForInitialization. Safe to close exactly once since we check
		// !c.initialized under the mutex.
		close(c.initChan)
	}
}

func (c *Checker) queryOffset(servers []string, timeout time.Duration) bool {
	c.mutex.Lock()
	samples := c.samples
	c.wellSynced = false
	c.mutex.Unlock()

	found := make([]time.Duration, samples)
	var expectedOffset time.Duration

	for i := 0; i < samples; i++ {
		offset, err := c.performSingleQuery(servers, timeout)
		if err != nil {
			// Try another random server instead of aborting the entire cycle.
			// A single server failure should not prevent the check when other
			// servers may be available.
			retried := false
			for attempt := 0; attempt < len(servers)-1; attempt++ {
				offset, err = c.performSingleQuery(servers, timeout)
				if err == nil {
					retried = true
					found[i] = offset
					break
				}
			}
			if !retried {
				return false
			}
		} else {
			found[i] = offset
		}

		if i == 0 {
			// Validate the first sample. If the offset is already past the
			// variance cap the baseline is unreliable; abort this cycle.
			if !c.validateFirstSample(found[0]) {
				return false
			}
			expectedOffset = found[0]
		} else {
			if !c.validateAdditionalSample(found[i], expectedOffset) {
				return false
			}
		}
	}

	// Use the median of all samples for robustness against outliers.
	c.stampOffset(calculateMedian(found))
	return true
}

// performSingleQuery executes one NTP query against a randomly selected server.
func (c *Checker) performSingleQuery(servers []string, timeout time.Duration) (time.Duration, error) {
	server := selectRandomServer(servers)
	if server == "" {
		return 0, fmt.Errorf("no NTP servers available")
	}
	options := ntp.QueryOptions{
		Timeout: timeout,
	}

	response, err := c.ntpClient.QueryWithOptions(server, options)
	if err != nil {
		log.WithError(err).WithField("server", server).Debug("NTP query failed")
		return 0, err
	}

	// Validate the response before using it to avoid trusting a broken or
	// hostile time source.
	if !validateResponse(response) {
		log.WithField("server", server).Debug("NTP response failed validation")
		return 0, fmt.Errorf("NTP response validation failed for server %s", server)
	}

	return response.ClockOffset, nil
}

// selectRandomServer chooses a random server from the list.
func selectRandomServer(servers []string) string {
	if len(servers) == 0 {
		return ""
	}
	return servers[rand.Intn(len(servers))]
}

// validateFirstSample checks if the first offset sample is within acceptable
// variance.
func (c *Checker) validateFirstSample(offset time.Duration) bool {
	return absDuration(offset) < maxVariance
}

// validateAdditionalSample checks if subsequent samples are consistent with
// the expected offset.
func (c *Checker) validateAdditionalSample(offset, expectedOffset time.Duration) bool {
	return absDuration(offset-expectedOffset) <= maxVariance
}

// stampOffset stores the measured offset and notifies listeners.
func (c *Checker) stampOffset(offset time.Duration) {
	c.mutex.Lock()
	c.offset = offset
	c.wellSynced = absDuration(offset) < wellSyncedThreshold
	warnThreshold := c.warnThreshold
	listeners := make([]OffsetListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mutex.Unlock()

	if absDuration(offset) > warnThreshold {
		log.WithField("offset", offset).Warn("Host clock is skewed; commissioning and service leases may misbehave")
	} else {
		log.WithField("offset", offset).Debug("Host clock offset measured")
	}

	for _, listener := range listeners {
		listener.SetOffset(offset)
	}
}

// calculateMedian computes the median of a slice of time.Duration values.
// The median is preferred over the mean as it is less affected by outliers.
func calculateMedian(offsets []time.Duration) time.Duration {
	if len(offsets) == 0 {
		return 0
	}
	if len(offsets) == 1 {
		return offsets[0]
	}

	// Copy to avoid mutating the caller's slice.
	sorted := make([]time.Duration, len(offsets))
	copy(sorted, offsets)

	// Insertion sort; the sample count is tiny.
	for i := 1; i < len(sorted); i++ {
		key := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j] > key {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = key
	}

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
