package cisco

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

// interfaceNamePattern admits IOS interface names such as GigabitEthernet1/0/1,
// Port-channel10.200 or Serial0/0:1 and nothing that could carry CLI syntax.
var interfaceNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9/.:_-]*$`)

const maxInterfaceNameLen = 64

// GuardConfig holds the interfaces that must never be re-enabled.
type GuardConfig struct {
	Protected []string
}

// Guard enforces which interface names may be sent to a device.
type Guard struct {
	protected map[string]bool
}

func NewGuard(cfg GuardConfig) *Guard {
	return &Guard{protected: toSet(cfg.Protected)}
}

var _ outbound.InterfaceGuard = (*Guard)(nil)

// Validate reports whether name is a well-formed interface name.
func (g *Guard) Validate(name string) error {
	if name == "" || len(name) > maxInterfaceNameLen || !interfaceNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", outbound.ErrInvalidInterfaceName, name)
	}
	return nil
}

// Allow reports whether name may be re-enabled. Protected names match
// case-insensitively.
func (g *Guard) Allow(name string) error {
	if err := g.Validate(name); err != nil {
		return err
	}
	if g.protected[strings.ToLower(name)] {
		return fmt.Errorf("%w: %s", outbound.ErrProtectedInterface, name)
	}
	return nil
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			s[strings.ToLower(item)] = true
		}
	}
	return s
}
