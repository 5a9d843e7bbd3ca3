package outbound

import (
	"context"
	"errors"
)

// Device fault kinds. Adapters wrap their transport errors with one of these so
// callers can tell them apart with errors.Is.
var (
	ErrConnectionTimeout = errors.New("device connection timed out")
	ErrAuthentication    = errors.New("device authentication failed")
	ErrNotConnected      = errors.New("device session not connected")
)

// DeviceSession is a command-response session to one managed device.
// Disconnect is safe to call whether or not Connect succeeded.
type DeviceSession interface {
	Connect(ctx context.Context, host string) error
	SendCommand(ctx context.Context, command string) (string, error)
	SendConfigSet(ctx context.Context, lines []string) (string, error)
	Disconnect() error
}

// DeviceSessionFactory hands out a fresh, unconnected session per operation.
// Sessions are never pooled or shared.
type DeviceSessionFactory interface {
	NewSession() DeviceSession
}

// HostResolver turns an event host into an address a session can dial.
type HostResolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// Diagnostics gathers reachability information after a failed connection.
type Diagnostics interface {
	Diagnose(ctx context.Context, host string) string
}

var (
	ErrInvalidInterfaceName = errors.New("invalid interface name")
	ErrProtectedInterface   = errors.New("interface is protected from remediation")
)

// InterfaceGuard decides which interface names may reach a device CLI.
type InterfaceGuard interface {
	// Validate checks only that name is safe to place in a command.
	Validate(name string) error
	// Allow additionally refuses interfaces that must never be re-enabled.
	Allow(name string) error
}
