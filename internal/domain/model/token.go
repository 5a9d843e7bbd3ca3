package model

import (
	"errors"
	"fmt"
	"strings"
)

// TokenSeparator splits the device and interface halves of an ActionToken.
const TokenSeparator = "|"

var ErrInvalidActionToken = errors.New("invalid action token")

// ActionToken correlates a button click with the device interface it acts on.
// There is no expiry and no replay protection.
type ActionToken struct {
	DeviceHost    string
	InterfaceName string
}

// Encode serializes the token as "<deviceHost>|<interfaceName>".
func (t ActionToken) Encode() string {
	return t.DeviceHost + TokenSeparator + t.InterfaceName
}

func (t ActionToken) String() string {
	return t.Encode()
}

// DecodeActionToken parses a value produced by Encode. The value must contain
// exactly one separator and both halves must be non-empty.
func DecodeActionToken(value string) (ActionToken, error) {
	if strings.Count(value, TokenSeparator) != 1 {
		return ActionToken{}, fmt.Errorf("%w: %q", ErrInvalidActionToken, value)
	}
	host, iface, _ := strings.Cut(value, TokenSeparator)
	if host == "" || iface == "" {
		return ActionToken{}, fmt.Errorf("%w: %q", ErrInvalidActionToken, value)
	}
	return ActionToken{DeviceHost: host, InterfaceName: iface}, nil
}
