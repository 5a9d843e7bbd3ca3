package slack

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/ifremediator/internal/adapter/inbound/slackbot/template"
	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

const (
	botTokenPrefix        = "xoxb-"
	responseTypeInChannel = "in_channel"
	responseTypeEphemeral = "ephemeral"

	colorSuccess = "#008000"
	colorDanger  = "#9C1A22"
	colorInfo    = "#439FE0"

	DefaultChannel = "#general"
	DefaultTimeout = 10 * time.Second
)

// Config holds Slack notifier configuration.
type Config struct {
	// PostURL is either a bot token (xoxb-...) or an incoming webhook URL.
	PostURL        string
	DefaultChannel string
	Timeout        time.Duration
	// APIURL overrides the Web API base URL; it must end with a slash.
	APIURL string
}

// Notifier implements outbound.Notifier. Fresh posts go through chat.postMessage
// when PostURL is a bot token and through the incoming webhook otherwise.
// Follow-ups always go to the interaction's response URL.
type Notifier struct {
	client     *slackapi.Client
	webhookURL string
	channel    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNotifier creates a new Slack Notifier.
func NewNotifier(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DefaultChannel == "" {
		cfg.DefaultChannel = DefaultChannel
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	n := &Notifier{
		channel:    cfg.DefaultChannel,
		httpClient: httpClient,
		logger:     logger,
	}
	if UsesBotToken(cfg.PostURL) {
		opts := []slackapi.Option{slackapi.OptionHTTPClient(httpClient)}
		if cfg.APIURL != "" {
			opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
		}
		n.client = slackapi.New(cfg.PostURL, opts...)
		logger.Info("using Slack bot token for notifications", slog.String("channel", n.channel))
	} else {
		n.webhookURL = cfg.PostURL
		logger.Info("using Slack incoming webhook for notifications")
	}
	return n
}

// UsesBotToken reports whether postURL is a bot token rather than a webhook URL.
func UsesBotToken(postURL string) bool {
	return strings.HasPrefix(postURL, botTokenPrefix)
}

var _ outbound.Notifier = (*Notifier)(nil)

// NotifyInterface posts the interface state card.
func (n *Notifier) NotifyInterface(ctx context.Context, notification outbound.InterfaceNotification) error {
	attachment := slackapi.Attachment{
		Color:  notification.Color,
		Blocks: slackapi.Blocks{BlockSet: template.BuildInterfaceBlocks(notification)},
	}
	if err := n.post(ctx, template.InterfaceFallbackText(notification), attachment); err != nil {
		return fmt.Errorf("slack NotifyInterface: %w", err)
	}
	n.logger.Info("posted interface notification",
		slog.String("host", notification.DeviceHost),
		slog.String("interface", notification.InterfaceName),
		slog.Int("controls", len(notification.Controls)),
	)
	return nil
}

// NotifyError posts the connection failure card.
func (n *Notifier) NotifyError(ctx context.Context, notification outbound.ErrorNotification) error {
	attachment := slackapi.Attachment{
		Color:  notification.Color,
		Blocks: slackapi.Blocks{BlockSet: template.BuildErrorBlocks(notification)},
	}
	if err := n.post(ctx, template.ErrorFallbackText(notification), attachment); err != nil {
		return fmt.Errorf("slack NotifyError: %w", err)
	}
	n.logger.Info("posted error notification", slog.String("host", notification.DeviceHost))
	return nil
}

// Respond answers an interactive message through its response URL.
func (n *Notifier) Respond(ctx context.Context, f outbound.FollowUp) error {
	if f.ResponseURL == "" {
		return fmt.Errorf("slack Respond: empty response URL")
	}
	responseType := responseTypeEphemeral
	if f.InChannel {
		responseType = responseTypeInChannel
	}
	msg := &slackapi.WebhookMessage{
		Text:            f.Text,
		ReplaceOriginal: f.ReplaceOriginal,
		ResponseType:    responseType,
		Attachments: []slackapi.Attachment{
			{Color: levelColor(f.Level), Text: f.Text},
		},
	}
	if err := slackapi.PostWebhookCustomHTTPContext(ctx, f.ResponseURL, n.httpClient, msg); err != nil {
		return fmt.Errorf("slack Respond: %w", err)
	}
	n.logger.Info("posted follow-up", slog.String("level", string(f.Level)))
	return nil
}

func (n *Notifier) post(ctx context.Context, text string, attachment slackapi.Attachment) error {
	if n.client != nil {
		_, _, err := n.client.PostMessageContext(ctx, n.channel,
			slackapi.MsgOptionText(text, false),
			slackapi.MsgOptionAttachments(attachment),
		)
		return err
	}
	if n.webhookURL == "" {
		return fmt.Errorf("no Slack post URL configured")
	}
	return slackapi.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, &slackapi.WebhookMessage{
		Text:        text,
		Attachments: []slackapi.Attachment{attachment},
	})
}

// levelColor maps a follow-up level to an attachment color.
func levelColor(level outbound.NotificationLevel) string {
	switch level {
	case outbound.NotificationSuccess:
		return colorSuccess
	case outbound.NotificationFailure:
		return colorDanger
	default:
		return colorInfo
	}
}

// HealthCheck verifies the bot token with auth.test. Webhook delivery has no
// probe, so it only checks that a URL is configured.
func (n *Notifier) HealthCheck(ctx context.Context) error {
	if n.client == nil {
		if n.webhookURL == "" {
			return fmt.Errorf("no Slack post URL configured")
		}
		return nil
	}
	if _, err := n.client.AuthTestContext(ctx); err != nil {
		return fmt.Errorf("slack auth.test: %w", err)
	}
	return nil
}
