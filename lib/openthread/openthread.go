// Package openthread defines the stack surface the agent drives: the types
// shared across the tree, the Instance interface a stack driver must expose,
// and the driver registry that turns a radio URL into a live instance.
//
// The package deliberately contains no Thread networking itself. Concrete
// behavior lives in drivers (lib/openthread/sim in this tree; real radio
// co-processor transports register the same way).
package openthread

import (
	"net/url"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/go-otbr/go-otbr/lib/mainloop"
	"github.com/go-otbr/go-otbr/lib/util/logger"
)

var log = logger.GetOTBRLogger()

// PlatformConfig carries the immutable platform-level settings captured at
// adapter construction. ResetHandler is invoked by the platform layer when
// the stack requests a host-level re-initialization; the handler typically
// flips the adapter's reset flag, and the host loop performs the actual
// teardown and re-init.
type PlatformConfig struct {
	// InterfaceName is the network interface name published for the node
	// (e.g. "wpan0").
	InterfaceName string
	// RadioURL selects and configures the stack driver, e.g. "sim://node1".
	RadioURL string
	// RadioConfig carries extra driver configuration from the command line.
	RadioConfig string
	// ResetRadio requests a radio reset during instance construction.
	ResetRadio bool
	// SpeedUpFactor divides simulated timer durations. Real drivers ignore it.
	SpeedUpFactor uint32
	// DataDir is where drivers persist settings.
	DataDir string
	// ResetHandler is called when the stack wants the host to re-initialize.
	ResetHandler func()
}

// normalized returns a copy with defaults applied.
func (cfg *PlatformConfig) normalized() PlatformConfig {
	out := *cfg
	if out.SpeedUpFactor == 0 {
		out.SpeedUpFactor = 1
	}
	return out
}

func (cfg *PlatformConfig) validate() error {
	if cfg.InterfaceName == "" {
		return oops.Errorf("platform config: interface name is required: %w", ErrInvalidArgs)
	}
	if cfg.RadioURL == "" {
		return oops.Errorf("platform config: radio URL is required: %w", ErrInvalidArgs)
	}
	return nil
}

// Instance is a live stack instance. It is exclusively owned by the adapter
// that created it: every method must be called from the adapter's loop
// goroutine, and no method may re-enter the instance.
type Instance interface {
	// SetStateChangedCallback installs the single state-change callback.
	// Installing a second callback fails with ErrInvalidState.
	SetStateChangedCallback(cb func(ChangedFlags)) error

	// TaskletsArePending reports whether stack work is queued.
	TaskletsArePending() bool
	// TaskletsProcess runs all queued tasklets.
	TaskletsProcess()

	// MainloopUpdate merges the instance's descriptors and wake-up deadline
	// into the poll context.
	MainloopUpdate(ctx *mainloop.Context)
	// MainloopProcess performs the instance's I/O and timer work after a poll.
	MainloopProcess(ctx *mainloop.Context)

	DeviceRole() DeviceRole
	NetworkName() string
	ExtendedPanID() ExtendedPanID
	PanID() PanID
	Pskc() Pskc
	ThreadVersion() uint16
	IsIP6Enabled() bool

	SetIP6Enabled(enabled bool) error
	SetThreadEnabled(enabled bool) error

	// Finalize releases the instance. The instance must not be used after.
	Finalize()
}

// Driver creates stack instances for one radio URL scheme.
type Driver interface {
	Open(cfg *PlatformConfig) (Instance, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver makes a stack driver available under the given radio URL
// scheme. It panics on a nil driver or a duplicate scheme, matching the
// usual driver-registry contract.
func RegisterDriver(scheme string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("openthread: RegisterDriver driver is nil")
	}
	if _, dup := drivers[scheme]; dup {
		panic("openthread: RegisterDriver called twice for scheme " + scheme)
	}
	drivers[scheme] = driver
	log.WithFields(logger.Fields{
		"at":     "RegisterDriver",
		"scheme": scheme,
	}).Debug("stack driver registered")
}

// Drivers returns the sorted list of registered schemes.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	list := make([]string, 0, len(drivers))
	for scheme := range drivers {
		list = append(list, scheme)
	}
	sort.Strings(list)
	return list
}

// NewInstance opens a stack instance for the configured radio URL. The
// driver is selected by URL scheme; an unknown scheme is an error listing
// what is available.
func NewInstance(cfg *PlatformConfig) (Instance, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	normalized := cfg.normalized()

	parsed, err := url.Parse(normalized.RadioURL)
	if err != nil {
		return nil, oops.Errorf("parse radio URL %q: %w", normalized.RadioURL, err)
	}
	if parsed.Scheme == "" {
		return nil, oops.Errorf("radio URL %q has no scheme: %w", normalized.RadioURL, ErrInvalidArgs)
	}

	driversMu.RLock()
	driver, ok := drivers[parsed.Scheme]
	driversMu.RUnlock()
	if !ok {
		return nil, oops.Errorf("unknown radio URL scheme %q (registered: %v): %w",
			parsed.Scheme, Drivers(), ErrNotFound)
	}

	log.WithFields(logger.Fields{
		"at":        "NewInstance",
		"scheme":    parsed.Scheme,
		"radio_url": normalized.RadioURL,
		"ifname":    normalized.InterfaceName,
	}).Debug("opening stack instance")

	instance, err := driver.Open(&normalized)
	if err != nil {
		return nil, oops.Errorf("open %q instance: %w", parsed.Scheme, err)
	}
	return instance, nil
}
