package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/jonny/ifremediator/internal/domain/model"
)

var ErrNoAction = errors.New("interaction carries no action")

// handleInteraction acks first; Slack expects the ack within three seconds and
// a remediation can take longer. Results reach the channel via the response URL.
func (b *Bot) handleInteraction(ctx context.Context, evt socketmode.Event) {
	if evt.Request != nil {
		b.socketMode.Ack(*evt.Request)
	}

	callback, ok := evt.Data.(slackapi.InteractionCallback)
	if !ok || callback.Type != slackapi.InteractionTypeBlockActions {
		return
	}
	if err := b.dispatch(ctx, callback); err != nil {
		b.logger.Error("socket mode callback failed",
			slog.String("user", callback.User.ID),
			slog.Any("error", err),
		)
	}
}

// dispatch decodes the first block action and hands it to the callback port.
func (b *Bot) dispatch(ctx context.Context, callback slackapi.InteractionCallback) error {
	actions := callback.ActionCallback.BlockActions
	if len(actions) == 0 || actions[0] == nil {
		return ErrNoAction
	}
	action := actions[0]

	token, err := model.DecodeActionToken(action.Value)
	if err != nil {
		return err
	}

	req := model.CallbackRequest{
		ActionID:    model.CallbackActionID(action.ActionID),
		Token:       token,
		ResponseURL: callback.ResponseURL,
		UserID:      callback.User.ID,
		UserName:    callback.User.Name,
	}
	if err := b.port.HandleCallback(ctx, req); err != nil {
		return fmt.Errorf("%s on %s: %w", req.ActionID, token, err)
	}
	return nil
}
