package template

import (
	slackapi "github.com/slack-go/slack"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

// BlockIDRemediation identifies the action block carrying remediation buttons.
const BlockIDRemediation = "interface_remediation"

// BuildControlBlock renders controls as buttons. Each button carries the
// encoded action token as its value.
func BuildControlBlock(controls []outbound.Control) *slackapi.ActionBlock {
	elements := make([]slackapi.BlockElement, 0, len(controls))
	for _, c := range controls {
		btn := slackapi.NewButtonBlockElement(
			string(c.ActionID),
			c.Token.Encode(),
			slackapi.NewTextBlockObject(slackapi.PlainTextType, c.Label, true, false),
		)
		if c.Primary {
			btn.Style = slackapi.StylePrimary
		}
		if c.Confirm != nil {
			btn.Confirm = slackapi.NewConfirmationBlockObject(
				slackapi.NewTextBlockObject(slackapi.PlainTextType, c.Confirm.Title, false, false),
				slackapi.NewTextBlockObject(slackapi.MarkdownType, c.Confirm.Text, false, false),
				slackapi.NewTextBlockObject(slackapi.PlainTextType, c.Confirm.ConfirmLabel, false, false),
				slackapi.NewTextBlockObject(slackapi.PlainTextType, c.Confirm.DenyLabel, false, false),
			)
		}
		elements = append(elements, btn)
	}
	return slackapi.NewActionBlock(BlockIDRemediation, elements...)
}
