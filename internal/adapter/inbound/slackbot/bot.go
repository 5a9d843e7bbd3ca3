package slackbot

import (
	"context"
	"errors"
	"log/slog"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/jonny/ifremediator/internal/domain/port/inbound"
)

var ErrMissingAppToken = errors.New("socket mode requires an app-level token (xapp-)")

// Config holds Slack bot configuration.
type Config struct {
	BotToken string
	AppToken string
}

// Bot receives button clicks over Socket Mode, so no public callback URL is
// needed. Clicks are dispatched to the same CallbackPort as the HTTP listener.
type Bot struct {
	client     *slackapi.Client
	socketMode *socketmode.Client
	port       inbound.CallbackPort
	logger     *slog.Logger
}

func NewBot(cfg Config, port inbound.CallbackPort, logger *slog.Logger) (*Bot, error) {
	if cfg.AppToken == "" {
		return nil, ErrMissingAppToken
	}
	client := slackapi.New(cfg.BotToken, slackapi.OptionAppLevelToken(cfg.AppToken))
	return &Bot{
		client:     client,
		socketMode: socketmode.New(client),
		port:       port,
		logger:     logger,
	}, nil
}

// Start processes Socket Mode events until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	go b.handleEvents(ctx)
	b.logger.Info("slack socket mode receiver starting")
	return b.socketMode.RunContext(ctx)
}

func (b *Bot) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketMode.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnected:
				b.logger.Info("slack socket mode connected")
			case socketmode.EventTypeConnectionError:
				b.logger.Warn("slack socket mode connection error", slog.Any("data", evt.Data))
			case socketmode.EventTypeInteractive:
				b.handleInteraction(ctx, evt)
			default:
				// Connection lifecycle events carry no request to ack.
				if evt.Request != nil {
					b.socketMode.Ack(*evt.Request)
				}
			}
		}
	}
}
