package openthread

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-otbr/go-otbr/lib/mainloop"
)

// stubInstance is the minimal Instance used to exercise the registry.
type stubInstance struct {
	cfg PlatformConfig
}

func (s *stubInstance) SetStateChangedCallback(func(ChangedFlags)) error { return nil }
func (s *stubInstance) TaskletsArePending() bool                         { return false }
func (s *stubInstance) TaskletsProcess()                                 {}
func (s *stubInstance) MainloopUpdate(*mainloop.Context)                 {}
func (s *stubInstance) MainloopProcess(*mainloop.Context)                {}
func (s *stubInstance) DeviceRole() DeviceRole                           { return RoleDisabled }
func (s *stubInstance) NetworkName() string                              { return "" }
func (s *stubInstance) ExtendedPanID() ExtendedPanID                     { return ExtendedPanID{} }
func (s *stubInstance) PanID() PanID                                     { return PanIDBroadcast }
func (s *stubInstance) Pskc() Pskc                                       { return Pskc{} }
func (s *stubInstance) ThreadVersion() uint16                            { return ThreadVersion13 }
func (s *stubInstance) IsIP6Enabled() bool                               { return false }
func (s *stubInstance) SetIP6Enabled(bool) error                         { return nil }
func (s *stubInstance) SetThreadEnabled(bool) error                      { return nil }
func (s *stubInstance) Finalize()                                        {}

type stubDriver struct {
	lastCfg *PlatformConfig
	openErr error
}

func (d *stubDriver) Open(cfg *PlatformConfig) (Instance, error) {
	d.lastCfg = cfg
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &stubInstance{cfg: *cfg}, nil
}

func TestNewInstanceDispatchesByScheme(t *testing.T) {
	driver := &stubDriver{}
	RegisterDriver("stub", driver)

	cfg := &PlatformConfig{
		InterfaceName: "wpan0",
		RadioURL:      "stub://node7",
	}
	instance, err := NewInstance(cfg)
	require.NoError(t, err)
	require.NotNil(t, instance)

	require.NotNil(t, driver.lastCfg)
	assert.Equal(t, "wpan0", driver.lastCfg.InterfaceName)
	assert.Equal(t, uint32(1), driver.lastCfg.SpeedUpFactor, "zero speed-up normalizes to 1")
}

func TestNewInstanceUnknownScheme(t *testing.T) {
	cfg := &PlatformConfig{
		InterfaceName: "wpan0",
		RadioURL:      "nosuch://dev",
	}
	_, err := NewInstance(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNewInstanceValidatesConfig(t *testing.T) {
	_, err := NewInstance(&PlatformConfig{RadioURL: "stub://x"})
	assert.Error(t, err, "missing interface name")

	_, err = NewInstance(&PlatformConfig{InterfaceName: "wpan0"})
	assert.Error(t, err, "missing radio URL")

	_, err = NewInstance(&PlatformConfig{InterfaceName: "wpan0", RadioURL: "/dev/ttyUSB0"})
	assert.Error(t, err, "scheme-less radio URL")
}

func TestNewInstancePropagatesOpenError(t *testing.T) {
	driver := &stubDriver{openErr: errors.New("radio not responding")}
	RegisterDriver("stub-failing", driver)

	cfg := &PlatformConfig{
		InterfaceName: "wpan0",
		RadioURL:      "stub-failing://dev",
	}
	_, err := NewInstance(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radio not responding")
}

func TestRegisterDriverPanicsOnDuplicate(t *testing.T) {
	RegisterDriver("stub-dup", &stubDriver{})
	assert.Panics(t, func() {
		RegisterDriver("stub-dup", &stubDriver{})
	})
}

func TestRegisterDriverPanicsOnNil(t *testing.T) {
	assert.Panics(t, func() {
		RegisterDriver("stub-nil", nil)
	})
}

func TestDriversSorted(t *testing.T) {
	RegisterDriver("zz-stub", &stubDriver{})
	RegisterDriver("aa-stub", &stubDriver{})

	list := Drivers()
	require.GreaterOrEqual(t, len(list), 2)
	assert.IsNonDecreasing(t, list)
}
