package outbound

import (
	"context"
	"time"

	"github.com/jonny/ifremediator/internal/domain/model"
)

type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationFailure NotificationLevel = "failure"
	NotificationInfo    NotificationLevel = "info"
)

// Field is one labelled value in a notification card.
type Field struct {
	Label string
	Value string
	Code  bool
}

// Confirmation is the dialog shown before a control fires.
type Confirmation struct {
	Title        string
	Text         string
	ConfirmLabel string
	DenyLabel    string
}

// Control is an interactive button that calls back with Token.
type Control struct {
	ActionID model.CallbackActionID
	Label    string
	Token    model.ActionToken
	Primary  bool
	Confirm  *Confirmation
}

type InterfaceNotification struct {
	DeviceHost    string
	InterfaceName string
	State         model.InterfaceState
	Decision      model.RemediationDecision
	StatusLabel   string
	Emoji         string
	Color         string
	Mnemonic      string
	Description   string
	// CriticalityIndicator is appended to the header for down events on
	// critical or high priority devices.
	CriticalityIndicator string
	Severity             int
	SeverityBand         string
	DeviceFields         []Field
	ContactFields        []Field
	RoutingFields        []Field
	EventDetails         string
	DeviceID             string
	Timestamp            time.Time
	Controls             []Control
}

type ErrorNotification struct {
	DeviceHost string
	Message    string
	Tips       []string
	Color      string
	Timestamp  time.Time
}

// FollowUp is a reply to an interactive message through its response URL.
type FollowUp struct {
	ResponseURL     string
	Text            string
	Level           NotificationLevel
	ReplaceOriginal bool
	InChannel       bool
}

// Notifier delivers composed content to the chat system. NotifyInterface and
// NotifyError are fresh posts; Respond answers a prior interactive message.
type Notifier interface {
	NotifyInterface(ctx context.Context, n InterfaceNotification) error
	NotifyError(ctx context.Context, n ErrorNotification) error
	Respond(ctx context.Context, f FollowUp) error
}
