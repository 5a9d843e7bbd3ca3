package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonny/ifremediator/internal/domain/model"
	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestComposer(callbackURL string) *Composer {
	return NewComposer(callbackURL).WithClock(func() time.Time { return fixedNow })
}

func downEvent(tags map[string]string) model.InterfaceEvent {
	return model.NewInterfaceEvent(model.RawEvent{
		Host:     "core-sw1",
		Message:  "%LINK-3-UPDOWN: Interface Gi0/1, changed state to down",
		Mnemonic: "UPDOWN",
		Severity: 3,
		Tags:     tags,
	}, "Gi0/1", model.InterfaceStateDown)
}

func upEvent() model.InterfaceEvent {
	return model.NewInterfaceEvent(model.RawEvent{
		Host:     "core-sw1",
		Message:  "Interface Gi0/1, changed state to up",
		Severity: 6,
	}, "Gi0/1", model.InterfaceStateUp)
}

func TestComposeInterface_Down(t *testing.T) {
	c := newTestComposer("")
	n := c.ComposeInterface(downEvent(map[string]string{model.TagCriticality: "Critical"}), model.DecisionNotifyOnly, "  uplink to core  ")

	if n.StatusLabel != StatusDown {
		t.Errorf("expected status %s, got %s", StatusDown, n.StatusLabel)
	}
	if n.Color != ColorDanger {
		t.Errorf("expected color %s, got %s", ColorDanger, n.Color)
	}
	if n.Emoji != EmojiDown {
		t.Errorf("expected emoji %s, got %s", EmojiDown, n.Emoji)
	}
	if n.Description != "uplink to core" {
		t.Errorf("expected trimmed description, got %q", n.Description)
	}
	if !strings.Contains(n.CriticalityIndicator, "CRITICAL") {
		t.Errorf("expected critical indicator, got %q", n.CriticalityIndicator)
	}
	if n.SeverityBand != "Critical" {
		t.Errorf("expected Critical band, got %s", n.SeverityBand)
	}
	if strings.Contains(n.EventDetails, "%") {
		t.Errorf("expected facility marker stripped, got %q", n.EventDetails)
	}
	if !n.Timestamp.Equal(fixedNow) {
		t.Errorf("expected timestamp %v, got %v", fixedNow, n.Timestamp)
	}
}

func TestComposeInterface_Up(t *testing.T) {
	c := newTestComposer("https://cb.example.com")
	n := c.ComposeInterface(upEvent(), model.DecisionNotifyOnly, "")

	if n.StatusLabel != StatusRecovered || n.Color != ColorSuccess || n.Emoji != EmojiUp {
		t.Errorf("unexpected recovered styling: %s %s %s", n.StatusLabel, n.Color, n.Emoji)
	}
	if n.CriticalityIndicator != "" {
		t.Errorf("recovery must carry no criticality indicator, got %q", n.CriticalityIndicator)
	}
	if n.SeverityBand != "Info" {
		t.Errorf("expected Info band, got %s", n.SeverityBand)
	}
	if len(n.Controls) != 0 {
		t.Errorf("expected no controls on recovery, got %d", len(n.Controls))
	}
}

func TestComposeInterface_Controls(t *testing.T) {
	tests := []struct {
		name        string
		event       model.InterfaceEvent
		decision    model.RemediationDecision
		callbackURL string
		want        int
	}{
		{"interactive down with url", downEvent(nil), model.DecisionOfferInteractive, "https://cb.example.com", 2},
		{"interactive down without url", downEvent(nil), model.DecisionOfferInteractive, "", 0},
		{"auto remediate", downEvent(nil), model.DecisionAutoRemediate, "https://cb.example.com", 0},
		{"notify only", downEvent(nil), model.DecisionNotifyOnly, "https://cb.example.com", 0},
		{"interactive up", upEvent(), model.DecisionOfferInteractive, "https://cb.example.com", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestComposer(tt.callbackURL).ComposeInterface(tt.event, tt.decision, "")
			if len(n.Controls) != tt.want {
				t.Fatalf("expected %d controls, got %d", tt.want, len(n.Controls))
			}
		})
	}
}

func TestComposeInterface_ControlTokens(t *testing.T) {
	n := newTestComposer("https://cb.example.com").ComposeInterface(downEvent(nil), model.DecisionOfferInteractive, "")

	fix, ack := n.Controls[0], n.Controls[1]
	if fix.ActionID != model.ActionFixInterface || ack.ActionID != model.ActionAcknowledge {
		t.Fatalf("unexpected action IDs: %s, %s", fix.ActionID, ack.ActionID)
	}
	for _, ctl := range n.Controls {
		if ctl.Token.Encode() != "core-sw1|Gi0/1" {
			t.Errorf("control %s: expected token core-sw1|Gi0/1, got %s", ctl.ActionID, ctl.Token.Encode())
		}
	}
	if !fix.Primary || fix.Confirm == nil {
		t.Error("fix control should be primary with a confirmation dialog")
	}
	if ack.Confirm != nil {
		t.Error("acknowledge control should not ask for confirmation")
	}
}

func TestComposeInterface_TagFields(t *testing.T) {
	tags := map[string]string{
		model.TagDeviceType:   "Switch",
		model.TagModel:        "C9300",
		model.TagLocation:     "DC1",
		model.TagZone:         "Row 4",
		model.TagManagementIP: "10.0.0.1",
		model.TagContact:      "noc",
		model.TagDeviceID:     "SW-0001",
		"VRF":                 "blue",
		"BGP":                 "AS65000",
		"Rack":                "R12",
	}
	n := newTestComposer("").ComposeInterface(downEvent(tags), model.DecisionNotifyOnly, "")

	got := map[string]outbound.Field{}
	for _, f := range n.DeviceFields {
		got[f.Label] = f
	}
	if got["Device Type"].Value != "Switch C9300" {
		t.Errorf("expected joined device type, got %q", got["Device Type"].Value)
	}
	if got["Location"].Value != "DC1 / Row 4" {
		t.Errorf("expected joined location, got %q", got["Location"].Value)
	}
	if !got["Management IP"].Code {
		t.Error("management IP should render as code")
	}
	if n.DeviceID != "SW-0001" {
		t.Errorf("expected device ID SW-0001, got %q", n.DeviceID)
	}

	if len(n.RoutingFields) != 2 {
		t.Fatalf("expected 2 routing fields, got %d", len(n.RoutingFields))
	}
	if n.RoutingFields[0].Label != "BGP" || n.RoutingFields[1].Label != "VRF" {
		t.Errorf("routing fields out of order: %+v", n.RoutingFields)
	}

	last := n.ContactFields[len(n.ContactFields)-1]
	if last.Label != "Severity" || !strings.Contains(last.Value, "3/10 (Critical)") {
		t.Errorf("unexpected severity field: %+v", last)
	}
}

func TestSeverityBand(t *testing.T) {
	tests := []struct {
		severity int
		want     string
	}{
		{0, "Critical"}, {3, "Critical"}, {4, "Warning"}, {5, "Warning"}, {6, "Info"}, {10, "Info"},
	}
	for _, tt := range tests {
		if got := SeverityBand(tt.severity); got != tt.want {
			t.Errorf("SeverityBand(%d) = %s, want %s", tt.severity, got, tt.want)
		}
	}
}

func TestComposeError(t *testing.T) {
	c := newTestComposer("")
	err := fmt.Errorf("dial 10.0.0.1:22: %w", outbound.ErrConnectionTimeout)
	n := c.ComposeError("core-sw1", err, "Device settings: 10.0.0.1:22")

	if !strings.HasPrefix(n.Message, "ERROR: dial 10.0.0.1:22") {
		t.Errorf("unexpected message: %q", n.Message)
	}
	if !strings.Contains(n.Message, "Device settings: 10.0.0.1:22") {
		t.Errorf("expected detail in message: %q", n.Message)
	}
	if n.Color != ColorDanger {
		t.Errorf("expected danger color, got %s", n.Color)
	}
	if len(n.Tips) != 3 || !strings.Contains(n.Tips[0], "ping") {
		t.Errorf("expected timeout tips, got %v", n.Tips)
	}
}

func TestTroubleshootingTips(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", outbound.ErrConnectionTimeout, "reachable"},
		{"auth", fmt.Errorf("login: %w", outbound.ErrAuthentication), "username and password"},
		{"refused", errors.New("dial tcp 10.0.0.1:22: connect: connection refused"), "firewall settings"},
		{"other", errors.New("no route to host"), "network connectivity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tips := TroubleshootingTips(tt.err)
			if !strings.Contains(strings.Join(tips, "\n"), tt.want) {
				t.Errorf("expected a tip containing %q, got %v", tt.want, tips)
			}
		})
	}
}

func TestComposeFollowUp(t *testing.T) {
	c := newTestComposer("")
	token := model.ActionToken{DeviceHost: "core-sw1", InterfaceName: "Gi0/1"}

	fix := c.ComposeFollowUp(model.CallbackRequest{
		ActionID: model.ActionFixInterface, Token: token, ResponseURL: "https://hooks/1", UserName: "alice",
	}, nil)
	if fix.Level != outbound.NotificationSuccess || !strings.Contains(fix.Text, "Successfully brought interface Gi0/1 up on core-sw1") {
		t.Errorf("unexpected fix follow-up: %+v", fix)
	}
	if fix.ReplaceOriginal || !fix.InChannel || fix.ResponseURL != "https://hooks/1" {
		t.Errorf("follow-up must be in channel without replacing the original: %+v", fix)
	}

	failed := c.ComposeFollowUp(model.CallbackRequest{ActionID: model.ActionFixInterface, Token: token}, errors.New("boom"))
	if failed.Level != outbound.NotificationFailure || !strings.Contains(failed.Text, "boom") {
		t.Errorf("unexpected failure follow-up: %+v", failed)
	}

	ack := c.ComposeFollowUp(model.CallbackRequest{ActionID: model.ActionAcknowledge, Token: token, UserID: "U1"}, nil)
	if !strings.Contains(ack.Text, "acknowledged by U1") {
		t.Errorf("unexpected acknowledge follow-up: %+v", ack)
	}
}
