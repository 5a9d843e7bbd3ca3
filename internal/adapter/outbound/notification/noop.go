package notification

import (
	"context"
	"log/slog"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

// NoopNotifier is a no-op notifier that logs notifications instead of sending them.
// Used in local development when Slack is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

// NewNoopNotifier creates a new NoopNotifier.
func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

var _ outbound.Notifier = (*NoopNotifier)(nil)

func (n *NoopNotifier) NotifyInterface(_ context.Context, notification outbound.InterfaceNotification) error {
	n.logger.Info("noop: interface notification",
		"host", notification.DeviceHost,
		"interface", notification.InterfaceName,
		"status", notification.StatusLabel,
		"controls", len(notification.Controls),
	)
	return nil
}

func (n *NoopNotifier) NotifyError(_ context.Context, notification outbound.ErrorNotification) error {
	n.logger.Info("noop: error notification",
		"host", notification.DeviceHost,
		"message", notification.Message,
	)
	return nil
}

func (n *NoopNotifier) Respond(_ context.Context, f outbound.FollowUp) error {
	n.logger.Info("noop: follow-up",
		"text", f.Text,
		"level", f.Level,
	)
	return nil
}
