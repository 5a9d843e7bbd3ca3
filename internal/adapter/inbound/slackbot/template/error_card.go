package template

import (
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

// BuildErrorBlocks constructs the card sent when a device cannot be reached.
func BuildErrorBlocks(n outbound.ErrorNotification) []slackapi.Block {
	header := slackapi.NewHeaderBlock(
		slackapi.NewTextBlockObject(slackapi.PlainTextType,
			":warning: Error connecting to "+n.DeviceHost, true, false),
	)

	blocks := []slackapi.Block{
		header,
		slackapi.NewDividerBlock(),
		markdownSection("*Error Message:*\n```" + truncate(n.Message, maxSectionText) + "```"),
	}

	if len(n.Tips) > 0 {
		lines := make([]string, len(n.Tips))
		for i, tip := range n.Tips {
			lines[i] = "• " + tip
		}
		blocks = append(blocks, markdownSection("*Troubleshooting Tips:*\n"+strings.Join(lines, "\n")))
	}

	blocks = append(blocks,
		slackapi.NewDividerBlock(),
		slackapi.NewContextBlock("", markdownText(":clock3: *Time:* "+formatTime(n.Timestamp))),
	)
	return blocks
}

func ErrorFallbackText(n outbound.ErrorNotification) string {
	return fmt.Sprintf(":warning: Error connecting to %s", n.DeviceHost)
}
