package model

import "strings"

type InterfaceState string

const (
	InterfaceStateUp   InterfaceState = "up"
	InterfaceStateDown InterfaceState = "down"
)

const (
	DefaultSeverity = 5
	MinSeverity     = 0
	MaxSeverity     = 10
)

// Well-known device tag keys carried with an event.
const (
	TagDeviceRole      = "Device-Role"
	TagDeviceType      = "Device-Type"
	TagDeviceID        = "DeviceID"
	TagCriticality     = "Criticality"
	TagLocation        = "Location"
	TagManagementIP    = "Management-IP"
	TagModel           = "Model"
	TagSoftwareVersion = "Software-Version"
	TagContact         = "Contact"
	TagContactPhone    = "Contact-Phone"
	TagZone            = "Zone"
)

// RawEvent is the unparsed trigger handed to the process by the event source.
type RawEvent struct {
	Host     string
	Message  string
	Mnemonic string
	Severity int
	Tags     map[string]string
}

// InterfaceEvent is a parsed interface state transition on one device.
type InterfaceEvent struct {
	DeviceHost    string
	InterfaceName string
	State         InterfaceState
	RawMessage    string
	Mnemonic      string
	Severity      int
	Tags          map[string]string
}

// NewInterfaceEvent builds an event, clamping severity into the 0-10 range.
func NewInterfaceEvent(raw RawEvent, iface string, state InterfaceState) InterfaceEvent {
	tags := make(map[string]string, len(raw.Tags))
	for k, v := range raw.Tags {
		tags[k] = v
	}
	return InterfaceEvent{
		DeviceHost:    raw.Host,
		InterfaceName: iface,
		State:         state,
		RawMessage:    raw.Message,
		Mnemonic:      raw.Mnemonic,
		Severity:      ClampSeverity(raw.Severity),
		Tags:          tags,
	}
}

// ClampSeverity bounds s to [MinSeverity, MaxSeverity].
func ClampSeverity(s int) int {
	if s < MinSeverity {
		return MinSeverity
	}
	if s > MaxSeverity {
		return MaxSeverity
	}
	return s
}

func (e InterfaceEvent) IsDown() bool {
	return e.State == InterfaceStateDown
}

// Tag returns the trimmed tag value, or "" when absent.
func (e InterfaceEvent) Tag(key string) string {
	return strings.TrimSpace(e.Tags[key])
}

// Token returns the correlation token for interactive controls on this event.
func (e InterfaceEvent) Token() ActionToken {
	return ActionToken{DeviceHost: e.DeviceHost, InterfaceName: e.InterfaceName}
}
