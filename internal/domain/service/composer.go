package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonny/ifremediator/internal/domain/model"
	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

const (
	ColorDanger  = "#9C1A22"
	ColorSuccess = "#008000"

	StatusDown      = "DOWN"
	StatusRecovered = "RECOVERED"

	EmojiDown = ":red_circle:"
	EmojiUp   = ":large_green_circle:"
)

const (
	labelRemediate   = "Remediate Interface"
	labelAcknowledge = "Acknowledge"
)

// Routing tags are shown in their own section, in this order.
var routingTags = []string{"BGP", "OSPF", "VRF", "Source-Interface", "Wan-Interface"}

const maxRoutingFields = 10

// Composer turns events and outcomes into notification descriptors. It holds
// no channel specifics; rendering belongs to the notifier.
type Composer struct {
	callbackBaseURL string
	now             func() time.Time
}

func NewComposer(callbackBaseURL string) *Composer {
	return &Composer{callbackBaseURL: callbackBaseURL, now: time.Now}
}

// WithClock returns a copy of c that stamps notifications using now.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	cp := *c
	cp.now = now
	return &cp
}

// ComposeInterface builds the state card for an event. It carries exactly two
// controls when the decision offers interaction on a DOWN event and a callback
// base URL is configured, and none otherwise.
func (c *Composer) ComposeInterface(e model.InterfaceEvent, d model.RemediationDecision, description string) outbound.InterfaceNotification {
	n := outbound.InterfaceNotification{
		DeviceHost:    e.DeviceHost,
		InterfaceName: e.InterfaceName,
		State:         e.State,
		Decision:      d,
		Mnemonic:      e.Mnemonic,
		Description:   strings.TrimSpace(description),
		Severity:      e.Severity,
		SeverityBand:  SeverityBand(e.Severity),
		DeviceID:      e.Tag(model.TagDeviceID),
		EventDetails:  formatEventDetails(e.RawMessage),
		Timestamp:     c.now(),
	}

	if e.IsDown() {
		n.StatusLabel, n.Emoji, n.Color = StatusDown, EmojiDown, ColorDanger
		n.CriticalityIndicator = criticalityIndicator(e.Tag(model.TagCriticality))
	} else {
		n.StatusLabel, n.Emoji, n.Color = StatusRecovered, EmojiUp, ColorSuccess
	}

	n.DeviceFields = deviceFields(e)
	n.ContactFields = contactFields(e)
	n.RoutingFields = routingFields(e)

	if d == model.DecisionOfferInteractive && e.IsDown() && c.callbackBaseURL != "" {
		n.Controls = remediationControls(e)
	}
	return n
}

// ComposeError builds the connection failure card. detail carries the device
// address and any diagnostics gathered by the caller.
func (c *Composer) ComposeError(host string, err error, detail string) outbound.ErrorNotification {
	msg := "ERROR: " + errorText(err)
	if detail = strings.TrimSpace(detail); detail != "" {
		msg += "\n\n" + detail
	}
	return outbound.ErrorNotification{
		DeviceHost: host,
		Message:    msg,
		Tips:       TroubleshootingTips(err),
		Color:      ColorDanger,
		Timestamp:  c.now(),
	}
}

// ComposeFollowUp builds the reply to a callback. A nil err means the action
// succeeded. Replies never replace the original card and are visible to the
// whole channel.
func (c *Composer) ComposeFollowUp(req model.CallbackRequest, err error) outbound.FollowUp {
	f := outbound.FollowUp{
		ResponseURL:     req.ResponseURL,
		ReplaceOriginal: false,
		InChannel:       true,
	}
	iface, device := req.Token.InterfaceName, req.Token.DeviceHost
	by := ""
	if actor := req.Actor(); actor != "" {
		by = " by " + actor
	}

	switch {
	case err != nil:
		f.Level = outbound.NotificationFailure
		f.Text = fmt.Sprintf(":x: Failed to bring interface %s up on %s: %s", iface, device, errorText(err))
	case req.ActionID == model.ActionAcknowledge:
		f.Level = outbound.NotificationInfo
		f.Text = fmt.Sprintf(":+1: Alert for interface %s on %s has been acknowledged%s", iface, device, by)
	default:
		f.Level = outbound.NotificationSuccess
		f.Text = fmt.Sprintf(":white_check_mark: Successfully brought interface %s up on %s%s", iface, device, by)
	}
	return f
}

// SeverityBand maps a 0-10 severity to its display band.
func SeverityBand(severity int) string {
	switch {
	case severity <= 3:
		return "Critical"
	case severity <= 5:
		return "Warning"
	default:
		return "Info"
	}
}

func severityIcon(severity int) string {
	switch {
	case severity <= 3:
		return ":red_circle:"
	case severity <= 5:
		return ":large_yellow_circle:"
	default:
		return ":large_blue_circle:"
	}
}

// TroubleshootingTips returns operator hints for a connection failure.
func TroubleshootingTips(err error) []string {
	lower := strings.ToLower(errorText(err))
	switch {
	case errors.Is(err, outbound.ErrConnectionTimeout) || strings.Contains(lower, "timed out"):
		return []string{
			"Check if the device is reachable (ping)",
			"Verify SSH service is running on the device",
			"Check network connectivity and firewall rules",
		}
	case errors.Is(err, outbound.ErrAuthentication) || strings.Contains(lower, "authentication failed"):
		return []string{
			"Verify username and password are correct",
			"Check if the account is locked or disabled",
		}
	case strings.Contains(lower, "connection refused"):
		return []string{
			"Verify SSH service is running on the configured port",
			"Check firewall settings on the device",
		}
	default:
		return []string{
			"Verify network connectivity to the device",
			"Check credentials in the configuration",
			"Ensure SSH access is enabled on the device",
		}
	}
}

func criticalityIndicator(criticality string) string {
	switch criticality {
	case "Critical":
		return ":bangbang: CRITICAL :bangbang:"
	case "High":
		return ":warning: HIGH PRIORITY"
	default:
		return ""
	}
}

func deviceFields(e model.InterfaceEvent) []outbound.Field {
	var fields []outbound.Field
	if v := joinNonEmpty(" ", e.Tag(model.TagDeviceType), e.Tag(model.TagModel)); v != "" {
		fields = append(fields, outbound.Field{Label: "Device Type", Value: v})
	}
	if v := e.Tag(model.TagDeviceRole); v != "" {
		fields = append(fields, outbound.Field{Label: "Role", Value: v})
	}
	if v := e.Tag(model.TagSoftwareVersion); v != "" {
		fields = append(fields, outbound.Field{Label: "Software", Value: v})
	}
	if v := joinNonEmpty(" / ", e.Tag(model.TagLocation), e.Tag(model.TagZone)); v != "" {
		fields = append(fields, outbound.Field{Label: "Location", Value: v})
	}
	if v := e.Tag(model.TagManagementIP); v != "" {
		fields = append(fields, outbound.Field{Label: "Management IP", Value: v, Code: true})
	}
	return fields
}

func contactFields(e model.InterfaceEvent) []outbound.Field {
	var fields []outbound.Field
	if v := e.Tag(model.TagContact); v != "" {
		fields = append(fields, outbound.Field{Label: "Contact", Value: v})
	}
	if v := e.Tag(model.TagContactPhone); v != "" {
		fields = append(fields, outbound.Field{Label: "Phone", Value: v})
	}
	fields = append(fields, outbound.Field{
		Label: "Severity",
		Value: fmt.Sprintf("%s %d/10 (%s)", severityIcon(e.Severity), e.Severity, SeverityBand(e.Severity)),
	})
	return fields
}

func routingFields(e model.InterfaceEvent) []outbound.Field {
	var fields []outbound.Field
	for _, key := range routingTags {
		if v := e.Tag(key); v != "" {
			fields = append(fields, outbound.Field{Label: key, Value: v, Code: true})
		}
		if len(fields) == maxRoutingFields {
			break
		}
	}
	return fields
}

func remediationControls(e model.InterfaceEvent) []outbound.Control {
	token := e.Token()
	return []outbound.Control{
		{
			ActionID: model.ActionFixInterface,
			Label:    labelRemediate,
			Token:    token,
			Primary:  true,
			Confirm: &outbound.Confirmation{
				Title:        "Confirm Interface Remediation",
				Text:         fmt.Sprintf("Are you sure you want to bring up interface `%s` on `%s`?", e.InterfaceName, e.DeviceHost),
				ConfirmLabel: "Yes, Remediate",
				DenyLabel:    "Cancel",
			},
		},
		{
			ActionID: model.ActionAcknowledge,
			Label:    labelAcknowledge,
			Token:    token,
		},
	}
}

// Syslog facility markers such as "%LINK-3-UPDOWN" read poorly in a code block.
func formatEventDetails(message string) string {
	return strings.TrimSpace(strings.ReplaceAll(message, "%", ""))
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
