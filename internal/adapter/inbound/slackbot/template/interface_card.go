package template

import (
	"fmt"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	// Slack rejects section text longer than 3000 characters.
	maxSectionText = 2900
)

// BuildInterfaceBlocks constructs the Block Kit card for an interface state change.
func BuildInterfaceBlocks(n outbound.InterfaceNotification) []slackapi.Block {
	title := "Interface Alert: " + n.DeviceHost
	if n.CriticalityIndicator != "" {
		title += " " + n.CriticalityIndicator
	}
	header := slackapi.NewHeaderBlock(
		slackapi.NewTextBlockObject(slackapi.PlainTextType, title, true, false),
	)

	status := []string{
		fmt.Sprintf("*Status:* %s *%s*", n.Emoji, n.StatusLabel),
		fmt.Sprintf("*Interface:* `%s`", n.InterfaceName),
	}
	if n.Mnemonic != "" {
		status = append(status, "*Event:* "+n.Mnemonic)
	}
	if n.Description != "" {
		status = append(status, "*Description:* "+n.Description)
	}
	statusBlock := markdownSection(strings.Join(status, "\n"))

	blocks := []slackapi.Block{header, slackapi.NewDividerBlock(), statusBlock}

	if len(n.DeviceFields) > 0 {
		blocks = append(blocks, fieldSection(n.DeviceFields))
	}
	if len(n.ContactFields) > 0 {
		blocks = append(blocks, fieldSection(n.ContactFields))
	}

	blocks = append(blocks,
		slackapi.NewDividerBlock(),
		markdownSection("*Event Details*\n```"+truncate(n.EventDetails, maxSectionText)+"```"),
	)

	if len(n.RoutingFields) > 0 {
		blocks = append(blocks, slackapi.NewDividerBlock(), fieldSection(n.RoutingFields))
	}

	if len(n.Controls) > 0 {
		blocks = append(blocks,
			slackapi.NewDividerBlock(),
			markdownSection("*Remediation Options*"),
			BuildControlBlock(n.Controls),
		)
	}

	footer := []slackapi.MixedElement{
		markdownText("*Timestamp:* " + formatTime(n.Timestamp)),
	}
	if n.Mnemonic != "" {
		footer = append(footer, markdownText("*Event Type:* "+n.Mnemonic))
	}
	if n.DeviceID != "" {
		footer = append(footer, markdownText("*Device ID:* "+n.DeviceID))
	}
	blocks = append(blocks, slackapi.NewDividerBlock(), slackapi.NewContextBlock("", footer...))

	return blocks
}

// InterfaceFallbackText is the plain notification text shown where blocks are not.
func InterfaceFallbackText(n outbound.InterfaceNotification) string {
	return fmt.Sprintf("%s Interface %s on %s is %s", n.Emoji, n.InterfaceName, n.DeviceHost, n.StatusLabel)
}

func fieldSection(fields []outbound.Field) *slackapi.SectionBlock {
	objs := make([]*slackapi.TextBlockObject, 0, len(fields))
	for _, f := range fields {
		value := f.Value
		if f.Code {
			value = "`" + value + "`"
		}
		objs = append(objs, markdownText(fmt.Sprintf("*%s:* %s", f.Label, value)))
	}
	return slackapi.NewSectionBlock(nil, objs, nil)
}

func markdownSection(text string) *slackapi.SectionBlock {
	return slackapi.NewSectionBlock(markdownText(text), nil, nil)
}

func markdownText(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(timestampLayout)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
