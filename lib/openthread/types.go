package openthread

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DeviceRole is the node's role in the Thread network.
type DeviceRole int

const (
	RoleDisabled DeviceRole = iota
	RoleDetached
	RoleChild
	RoleRouter
	RoleLeader
)

func (r DeviceRole) String() string {
	switch r {
	case RoleDisabled:
		return "disabled"
	case RoleDetached:
		return "detached"
	case RoleChild:
		return "child"
	case RoleRouter:
		return "router"
	case RoleLeader:
		return "leader"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// IsAttached reports whether the role means the node participates in a Thread
// partition. Disabled and detached nodes are not attached.
func (r DeviceRole) IsAttached() bool {
	switch r {
	case RoleChild, RoleRouter, RoleLeader:
		return true
	default:
		return false
	}
}

// ChangedFlags is the bitmask the stack reports through the state-change
// callback. The bit assignments follow the wrapped library so that drivers
// can pass hardware-reported masks through unmodified.
type ChangedFlags uint32

const (
	ChangedIP6AddressAdded ChangedFlags = 1 << iota
	ChangedIP6AddressRemoved
	ChangedThreadRole
	ChangedThreadLLAddr
	ChangedThreadMLAddr
	ChangedThreadRLOCAdded
	ChangedThreadRLOCRemoved
	ChangedThreadPartitionID
	ChangedThreadKeySeqCounter
	ChangedThreadNetdata
	ChangedThreadChildAdded
	ChangedThreadChildRemoved
	ChangedIP6MulticastSubscribed
	ChangedIP6MulticastUnsubscribed
	ChangedThreadChannel
	ChangedThreadPanID
	ChangedThreadNetworkName
	ChangedThreadExtPanID
	ChangedNetworkKey
	ChangedPskc
	ChangedSecurityPolicy
	ChangedChannelManagerNewChannel
	ChangedSupportedChannelMask
)

// Has reports whether all bits of mask are set.
func (f ChangedFlags) Has(mask ChangedFlags) bool {
	return f&mask == mask
}

var changedFlagNames = []struct {
	flag ChangedFlags
	name string
}{
	{ChangedIP6AddressAdded, "ip6_addr_added"},
	{ChangedIP6AddressRemoved, "ip6_addr_removed"},
	{ChangedThreadRole, "role"},
	{ChangedThreadLLAddr, "ll_addr"},
	{ChangedThreadMLAddr, "ml_addr"},
	{ChangedThreadRLOCAdded, "rloc_added"},
	{ChangedThreadRLOCRemoved, "rloc_removed"},
	{ChangedThreadPartitionID, "partition_id"},
	{ChangedThreadKeySeqCounter, "key_seq_counter"},
	{ChangedThreadNetdata, "netdata"},
	{ChangedThreadChildAdded, "child_added"},
	{ChangedThreadChildRemoved, "child_removed"},
	{ChangedIP6MulticastSubscribed, "mcast_subscribed"},
	{ChangedIP6MulticastUnsubscribed, "mcast_unsubscribed"},
	{ChangedThreadChannel, "channel"},
	{ChangedThreadPanID, "panid"},
	{ChangedThreadNetworkName, "network_name"},
	{ChangedThreadExtPanID, "ext_panid"},
	{ChangedNetworkKey, "network_key"},
	{ChangedPskc, "pskc"},
	{ChangedSecurityPolicy, "security_policy"},
	{ChangedChannelManagerNewChannel, "new_channel"},
	{ChangedSupportedChannelMask, "channel_mask"},
}

func (f ChangedFlags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, entry := range changedFlagNames {
		if f&entry.flag != 0 {
			names = append(names, entry.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("0x%08x", uint32(f))
	}
	return strings.Join(names, "|")
}

// PanID is the 802.15.4 PAN identifier. The broadcast value marks a node
// that has never been commissioned.
type PanID uint16

// PanIDBroadcast is the reserved "unset" PAN ID.
const PanIDBroadcast PanID = 0xffff

// IsSet reports whether the PAN ID holds a commissioned value.
func (p PanID) IsSet() bool {
	return p != PanIDBroadcast
}

func (p PanID) String() string {
	return fmt.Sprintf("0x%04x", uint16(p))
}

// ExtendedPanID is the 8-byte extended PAN identifier.
type ExtendedPanID [8]byte

func (e ExtendedPanID) String() string {
	return hex.EncodeToString(e[:])
}

// Pskc is the pre-shared commissioner key. String redacts the value; PSKc is
// key material and must never end up in logs.
type Pskc [16]byte

func (p Pskc) String() string {
	return "[redacted]"
}

// Hex returns the raw hex encoding for consumers that legitimately need the
// value (event subscribers, settings persistence).
func (p Pskc) Hex() string {
	return hex.EncodeToString(p[:])
}

// MaxNetworkNameLength is the wire limit for Thread network names.
const MaxNetworkNameLength = 16

// ValidateNetworkName checks the length constraint on a Thread network name.
func ValidateNetworkName(name string) error {
	if len(name) > MaxNetworkNameLength {
		return ErrInvalidArgs
	}
	return nil
}

// Thread protocol version numbers as reported by the stack.
const (
	ThreadVersion11 uint16 = 2
	ThreadVersion12 uint16 = 3
	ThreadVersion13 uint16 = 4
)

// Dataset is the operational dataset subset the agent persists and exposes.
// Yaml tags serve the sim driver's settings file.
type Dataset struct {
	NetworkName   string `yaml:"network_name"`
	PanID         uint16 `yaml:"pan_id"`
	ExtendedPanID string `yaml:"ext_pan_id"`
	Channel       uint8  `yaml:"channel"`
	Pskc          string `yaml:"pskc"`
	Active        bool   `yaml:"active"`
}

// DecodeExtendedPanID parses the dataset's hex extended PAN ID.
func (d *Dataset) DecodeExtendedPanID() (ExtendedPanID, error) {
	var out ExtendedPanID
	if d.ExtendedPanID == "" {
		return out, nil
	}
	raw, err := hex.DecodeString(d.ExtendedPanID)
	if err != nil || len(raw) != len(out) {
		return out, ErrInvalidArgs
	}
	copy(out[:], raw)
	return out, nil
}

// DecodePskc parses the dataset's hex PSKc.
func (d *Dataset) DecodePskc() (Pskc, error) {
	var out Pskc
	if d.Pskc == "" {
		return out, nil
	}
	raw, err := hex.DecodeString(d.Pskc)
	if err != nil || len(raw) != len(out) {
		return out, ErrInvalidArgs
	}
	copy(out[:], raw)
	return out, nil
}
