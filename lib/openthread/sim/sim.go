// Package sim provides the simulated stack driver. It is not a Thread
// implementation: it reproduces the observable surface of the wrapped
// library (tasklets, alarms, state-change flags, dataset persistence) well
// enough to develop and test the agent without radio hardware.
//
// The driver registers itself under the "sim" radio URL scheme:
//
//	go-otbr -I wpan0 "sim://1"
package sim

import (
	"time"

	"github.com/eapache/queue"
	"github.com/samber/oops"

	"github.com/go-otbr/go-otbr/lib/mainloop"
	"github.com/go-otbr/go-otbr/lib/openthread"
	"github.com/go-otbr/go-otbr/lib/util/logger"
)

var log = logger.GetOTBRLogger()

// attachDuration is the unscaled time a freshly enabled node spends detached
// before promoting itself to leader of its own partition.
const attachDuration = 2 * time.Second

type driver struct{}

func (driver) Open(cfg *openthread.PlatformConfig) (openthread.Instance, error) {
	return Open(cfg)
}

func init() {
	openthread.RegisterDriver("sim", driver{})
}

// alarm is one pending stack-internal timer.
type alarm struct {
	at time.Time
	fn func()
}

// Instance is a simulated stack instance. Per the Instance contract it is
// exclusively owned by its adapter and must only be used from one goroutine,
// so there is no locking here.
type Instance struct {
	cfg openthread.PlatformConfig

	role          openthread.DeviceRole
	dataset       openthread.Dataset
	ip6Enabled    bool
	threadEnabled bool

	callback     func(openthread.ChangedFlags)
	pendingFlags openthread.ChangedFlags

	tasklets *queue.Queue
	alarms   []*alarm

	// now is swappable for deterministic tests.
	now func() time.Time

	finalized bool
}

var _ openthread.Instance = (*Instance)(nil)

// Open creates a simulated instance. Stored settings are reloaded so a node
// resumes its network across agent restarts; when none exist, a dataset in
// the radio config string commissions the node at boot.
func Open(cfg *openthread.PlatformConfig) (*Instance, error) {
	inst := &Instance{
		cfg:      *cfg,
		role:     openthread.RoleDisabled,
		tasklets: queue.New(),
		now:      time.Now,
	}

	if cfg.ResetRadio {
		// Volatile state only. Stored settings survive a radio reset.
		log.WithFields(logger.Fields{
			"at":     "sim.Open",
			"ifname": cfg.InterfaceName,
		}).Debug("radio reset requested; clearing volatile state")
	}

	loaded, err := inst.loadSettings()
	if err != nil {
		return nil, oops.Errorf("load sim settings: %w", err)
	}

	if !loaded && cfg.RadioConfig != "" {
		dataset, err := parseRadioConfig(cfg.RadioConfig)
		if err != nil {
			return nil, oops.Errorf("parse radio config: %w", err)
		}
		if err := inst.Commission(dataset); err != nil {
			return nil, oops.Errorf("commission from radio config: %w", err)
		}
	}

	log.WithFields(logger.Fields{
		"at":       "sim.Open",
		"ifname":   cfg.InterfaceName,
		"resumed":  loaded,
		"speed_up": cfg.SpeedUpFactor,
	}).Debug("sim instance opened")
	return inst, nil
}

// SetStateChangedCallback installs the single state-change callback. A nil
// callback clears the slot; installing over an existing callback fails with
// ErrInvalidState.
func (i *Instance) SetStateChangedCallback(cb func(openthread.ChangedFlags)) error {
	if i.finalized {
		return openthread.ErrInvalidState
	}
	if cb == nil {
		i.callback = nil
		return nil
	}
	if i.callback != nil {
		return oops.Errorf("state-change callback already installed: %w", openthread.ErrInvalidState)
	}
	i.callback = cb
	return nil
}

// TaskletsArePending reports queued stack work, including undelivered
// state-change flags.
func (i *Instance) TaskletsArePending() bool {
	if i.tasklets.Length() > 0 {
		return true
	}
	return i.pendingFlags != 0 && i.callback != nil
}

// TaskletsProcess drains the tasklet queue and then flushes accumulated
// state-change flags through the callback in one coalesced delivery.
func (i *Instance) TaskletsProcess() {
	for i.tasklets.Length() > 0 {
		task := i.tasklets.Remove().(func())
		task()
	}
	i.flushStateChanges()
}

func (i *Instance) postTasklet(fn func()) {
	i.tasklets.Add(fn)
}

func (i *Instance) flushStateChanges() {
	if i.pendingFlags == 0 || i.callback == nil {
		return
	}
	flags := i.pendingFlags
	i.pendingFlags = 0
	i.callback(flags)
}

// MainloopUpdate merges the earliest stack alarm into the poll deadline. The
// sim registers no descriptors; those belong to real radio transports.
func (i *Instance) MainloopUpdate(ctx *mainloop.Context) {
	if next, ok := i.nextAlarm(); ok {
		ctx.SetTimeoutIfEarlier(next.Sub(i.now()))
	}
}

// MainloopProcess fires due alarms. Alarm handlers enqueue tasklets, so the
// observable effects land on the next tasklet pass, exactly like the wrapped
// library's platform alarm path.
func (i *Instance) MainloopProcess(ctx *mainloop.Context) {
	i.fireDueAlarms()
}

func (i *Instance) nextAlarm() (time.Time, bool) {
	var next time.Time
	found := false
	for _, a := range i.alarms {
		if !found || a.at.Before(next) {
			next = a.at
			found = true
		}
	}
	return next, found
}

func (i *Instance) fireDueAlarms() {
	now := i.now()
	remaining := i.alarms[:0]
	var due []*alarm
	for _, a := range i.alarms {
		if a.at.After(now) {
			remaining = append(remaining, a)
		} else {
			due = append(due, a)
		}
	}
	i.alarms = remaining
	for _, a := range due {
		a.fn()
	}
}

// armAlarm schedules fn after delay scaled down by the configured speed-up
// factor.
func (i *Instance) armAlarm(delay time.Duration, fn func()) {
	if factor := i.cfg.SpeedUpFactor; factor > 1 {
		delay /= time.Duration(factor)
	}
	i.alarms = append(i.alarms, &alarm{at: i.now().Add(delay), fn: fn})
}

func (i *Instance) cancelAlarms() {
	i.alarms = nil
}

func (i *Instance) setRole(role openthread.DeviceRole) {
	if i.role == role {
		return
	}
	log.WithFields(logger.Fields{
		"at":   "(sim.Instance) setRole",
		"from": i.role.String(),
		"to":   role.String(),
	}).Debug("sim role transition")
	i.role = role
	i.pendingFlags |= openthread.ChangedThreadRole
}

func (i *Instance) DeviceRole() openthread.DeviceRole {
	return i.role
}

func (i *Instance) NetworkName() string {
	if !i.dataset.Active {
		return ""
	}
	return i.dataset.NetworkName
}

func (i *Instance) ExtendedPanID() openthread.ExtendedPanID {
	if !i.dataset.Active {
		return openthread.ExtendedPanID{}
	}
	xpanid, err := i.dataset.DecodeExtendedPanID()
	if err != nil {
		return openthread.ExtendedPanID{}
	}
	return xpanid
}

func (i *Instance) PanID() openthread.PanID {
	if !i.dataset.Active {
		return openthread.PanIDBroadcast
	}
	return openthread.PanID(i.dataset.PanID)
}

func (i *Instance) Pskc() openthread.Pskc {
	if !i.dataset.Active {
		return openthread.Pskc{}
	}
	pskc, err := i.dataset.DecodePskc()
	if err != nil {
		return openthread.Pskc{}
	}
	return pskc
}

func (i *Instance) ThreadVersion() uint16 {
	return openthread.ThreadVersion13
}

func (i *Instance) IsIP6Enabled() bool {
	return i.ip6Enabled
}

// SetIP6Enabled raises or lowers the simulated network interface. Lowering
// it while Thread is running is rejected, matching the wrapped library.
func (i *Instance) SetIP6Enabled(enabled bool) error {
	if i.finalized {
		return openthread.ErrInvalidState
	}
	if i.ip6Enabled == enabled {
		return nil
	}
	if !enabled && i.threadEnabled {
		return oops.Errorf("cannot disable ip6 while thread is enabled: %w", openthread.ErrInvalidState)
	}
	i.ip6Enabled = enabled
	if enabled {
		i.pendingFlags |= openthread.ChangedIP6AddressAdded
	} else {
		i.pendingFlags |= openthread.ChangedIP6AddressRemoved
	}
	return nil
}

// SetThreadEnabled starts or stops the Thread protocol. Starting requires a
// commissioned dataset and a raised interface; the node then attaches
// asynchronously: a tasklet moves it to detached and an alarm later promotes
// it to leader of a single-node partition.
func (i *Instance) SetThreadEnabled(enabled bool) error {
	if i.finalized {
		return openthread.ErrInvalidState
	}
	if enabled == i.threadEnabled {
		return nil
	}

	if enabled {
		if !i.ip6Enabled {
			return oops.Errorf("ip6 must be enabled before thread: %w", openthread.ErrInvalidState)
		}
		if !i.dataset.Active || !openthread.PanID(i.dataset.PanID).IsSet() {
			return oops.Errorf("no commissioned dataset: %w", openthread.ErrInvalidState)
		}
		i.threadEnabled = true
		i.postTasklet(func() {
			i.setRole(openthread.RoleDetached)
			i.armAlarm(attachDuration, i.attach)
		})
		return nil
	}

	i.threadEnabled = false
	i.cancelAlarms()
	i.postTasklet(func() {
		i.setRole(openthread.RoleDisabled)
	})
	return nil
}

// attach promotes the node to leader. Fired by the attach alarm; the effects
// are queued as a tasklet so flag delivery follows the normal tasklet pass.
func (i *Instance) attach() {
	i.postTasklet(func() {
		if !i.threadEnabled {
			return
		}
		i.setRole(openthread.RoleLeader)
		i.pendingFlags |= openthread.ChangedThreadPartitionID |
			openthread.ChangedThreadNetdata |
			openthread.ChangedThreadMLAddr
	})
}

// Commission installs an operational dataset. Rejected while Thread is
// running. The dataset is persisted immediately so the network survives
// agent restarts.
func (i *Instance) Commission(dataset openthread.Dataset) error {
	if i.finalized || i.threadEnabled {
		return oops.Errorf("cannot commission while thread is enabled: %w", openthread.ErrInvalidState)
	}
	if err := openthread.ValidateNetworkName(dataset.NetworkName); err != nil {
		return oops.Errorf("network name %q: %w", dataset.NetworkName, err)
	}
	if !openthread.PanID(dataset.PanID).IsSet() {
		return oops.Errorf("pan id is required: %w", openthread.ErrInvalidArgs)
	}
	if _, err := dataset.DecodeExtendedPanID(); err != nil {
		return oops.Errorf("extended pan id %q: %w", dataset.ExtendedPanID, err)
	}
	if _, err := dataset.DecodePskc(); err != nil {
		return oops.Errorf("pskc: %w", err)
	}

	dataset.Active = true
	i.dataset = dataset
	i.pendingFlags |= openthread.ChangedThreadPanID |
		openthread.ChangedThreadNetworkName |
		openthread.ChangedThreadExtPanID |
		openthread.ChangedThreadChannel |
		openthread.ChangedPskc

	if err := i.saveSettings(); err != nil {
		return oops.Errorf("persist sim settings: %w", err)
	}

	log.WithFields(logger.Fields{
		"at":           "(sim.Instance) Commission",
		"network_name": dataset.NetworkName,
		"panid":        openthread.PanID(dataset.PanID).String(),
	}).Debug("sim node commissioned")
	return nil
}

// Dataset returns a copy of the current operational dataset.
func (i *Instance) Dataset() openthread.Dataset {
	return i.dataset
}

// TriggerPlatformReset invokes the configured platform reset handler, the
// analog of the wrapped library's otPlatReset. Test and diagnostics hook.
func (i *Instance) TriggerPlatformReset() {
	if i.cfg.ResetHandler != nil {
		i.cfg.ResetHandler()
	}
}

// Finalize persists settings and releases the instance.
func (i *Instance) Finalize() {
	if i.finalized {
		return
	}
	if err := i.saveSettings(); err != nil {
		log.WithError(err).Warn("Failed to persist sim settings during finalize")
	}
	i.finalized = true
	i.callback = nil
	i.cancelAlarms()
	i.tasklets = queue.New()
	i.pendingFlags = 0
	log.WithFields(logger.Fields{
		"at":     "(sim.Instance) Finalize",
		"ifname": i.cfg.InterfaceName,
	}).Debug("sim instance finalized")
}
