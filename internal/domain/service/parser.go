package service

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jonny/ifremediator/internal/domain/model"
)

// ErrUnparsedEvent means the event message does not describe an interface
// state transition. It ends the run.
var ErrUnparsedEvent = errors.New("unable to obtain interface name from event message")

// Checked in order; the first match wins.
var statePatterns = []struct {
	re    *regexp.Regexp
	state model.InterfaceState
}{
	{regexp.MustCompile(`Interface (\S+), changed state to down`), model.InterfaceStateDown},
	{regexp.MustCompile(`Interface (\S+), changed state to up`), model.InterfaceStateUp},
}

// ParseInterfaceEvent extracts the interface name and new state from a syslog
// style message. Matching is case-sensitive and the name is returned verbatim.
func ParseInterfaceEvent(message string) (string, model.InterfaceState, bool) {
	if message == "" {
		return "", "", false
	}
	for _, p := range statePatterns {
		if m := p.re.FindStringSubmatch(message); m != nil {
			return m[1], p.state, true
		}
	}
	return "", "", false
}

// ParseEvent builds an InterfaceEvent from raw, or wraps ErrUnparsedEvent.
func ParseEvent(raw model.RawEvent) (model.InterfaceEvent, error) {
	iface, state, ok := ParseInterfaceEvent(raw.Message)
	if !ok {
		return model.InterfaceEvent{}, fmt.Errorf("%w: %q", ErrUnparsedEvent, raw.Message)
	}
	return model.NewInterfaceEvent(raw, iface, state), nil
}
