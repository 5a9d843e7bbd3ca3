package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jonny/ifremediator/internal/domain/model"
	"github.com/jonny/ifremediator/internal/domain/port/inbound"
	"github.com/jonny/ifremediator/internal/domain/port/outbound"
	"github.com/jonny/ifremediator/internal/metrics"
)

const (
	triggerAuto     = "auto"
	triggerCallback = "callback"
)

var descriptionPattern = regexp.MustCompile(`Description: (.+)`)

// EnableInterfaceCommands is the configuration set that brings iface up.
func EnableInterfaceCommands(iface string) []string {
	return []string{"interface " + iface, "no shutdown", "exit"}
}

// DescriptionCommand reads the configured description of iface.
func DescriptionCommand(iface string) string {
	return "show interface " + iface + " | include Description"
}

// Dependencies groups the collaborators the controller drives.
type Dependencies struct {
	Sessions    outbound.DeviceSessionFactory
	Resolver    outbound.HostResolver
	Diagnostics outbound.Diagnostics
	Notifier    outbound.Notifier
	Guard       outbound.InterfaceGuard
}

type ControllerConfig struct {
	Policy     model.RemediationPolicy
	DevicePort int
}

// Controller runs the event workflow and answers interactive callbacks.
// It holds no per-event state; every operation opens and releases its own
// device session.
type Controller struct {
	composer    *Composer
	sessions    outbound.DeviceSessionFactory
	resolver    outbound.HostResolver
	diagnostics outbound.Diagnostics
	notifier    outbound.Notifier
	guard       outbound.InterfaceGuard
	policy      model.RemediationPolicy
	devicePort  int
	logger      *slog.Logger
}

func NewController(composer *Composer, deps Dependencies, cfg ControllerConfig, logger *slog.Logger) *Controller {
	return &Controller{
		composer:    composer,
		sessions:    deps.Sessions,
		resolver:    deps.Resolver,
		diagnostics: deps.Diagnostics,
		notifier:    deps.Notifier,
		guard:       deps.Guard,
		policy:      cfg.Policy,
		devicePort:  cfg.DevicePort,
		logger:      logger,
	}
}

var _ inbound.EventPort = (*Controller)(nil)
var _ inbound.CallbackPort = (*Controller)(nil)

// HandleEvent processes one interface event. Only an unparseable message or an
// unresolvable host is returned as an error; device and delivery faults are
// reported to the channel or logged.
func (c *Controller) HandleEvent(ctx context.Context, raw model.RawEvent) error {
	ev, err := ParseEvent(raw)
	if err != nil {
		return err
	}
	metrics.ObserveEvent(string(ev.State))

	logger := c.logger.With(
		slog.String("host", ev.DeviceHost),
		slog.String("interface", ev.InterfaceName),
		slog.String("state", string(ev.State)),
	)
	logger.Info("interface event received", slog.String("mnemonic", ev.Mnemonic), slog.Int("severity", ev.Severity))

	addr, err := c.resolver.Resolve(ctx, ev.DeviceHost)
	if err != nil {
		return fmt.Errorf("resolve device %s: %w", ev.DeviceHost, err)
	}

	sess := c.sessions.NewSession()
	defer c.release(sess, logger)

	if err := sess.Connect(ctx, addr); err != nil {
		c.reportConnectFailure(ctx, ev.DeviceHost, addr, err, logger)
		return nil
	}

	description := c.readDescription(ctx, sess, ev.InterfaceName, logger)

	decision := model.Decide(ev.State, c.policy)
	metrics.ObserveDecision(string(decision))
	logger.Info("remediation decision", slog.String("decision", string(decision)))

	n := c.composer.ComposeInterface(ev, decision, description)
	err = c.notifier.NotifyInterface(ctx, n)
	metrics.ObserveNotification("interface", err)
	if err != nil {
		logger.Error("interface notification failed", slog.Any("error", err))
	}

	if decision == model.DecisionAutoRemediate {
		c.autoRemediate(ctx, sess, ev.InterfaceName, logger)
	}
	return nil
}

// HandleCallback dispatches a button click. Fix failures are reported to the
// channel and returned wrapped in inbound.ErrRemediationFailed.
func (c *Controller) HandleCallback(ctx context.Context, req model.CallbackRequest) error {
	logger := c.logger.With(
		slog.String("action_id", string(req.ActionID)),
		slog.String("host", req.Token.DeviceHost),
		slog.String("interface", req.Token.InterfaceName),
		slog.String("user", req.Actor()),
	)

	switch req.ActionID {
	case model.ActionFixInterface:
		logger.Info("remediation requested")
		err := c.remediate(ctx, req.Token, logger)
		c.respond(ctx, c.composer.ComposeFollowUp(req, err), logger)
		if err != nil {
			metrics.ObserveRemediation(triggerCallback, remediationOutcome(err))
			return fmt.Errorf("%w: %w", inbound.ErrRemediationFailed, err)
		}
		metrics.ObserveRemediation(triggerCallback, metrics.OutcomeSuccess)
		return nil

	case model.ActionAcknowledge:
		logger.Info("alert acknowledged")
		c.respond(ctx, c.composer.ComposeFollowUp(req, nil), logger)
		return nil

	default:
		return fmt.Errorf("%w: %q", inbound.ErrUnknownAction, req.ActionID)
	}
}

func (c *Controller) remediate(ctx context.Context, token model.ActionToken, logger *slog.Logger) error {
	if err := c.guard.Allow(token.InterfaceName); err != nil {
		return err
	}

	addr, err := c.resolver.Resolve(ctx, token.DeviceHost)
	if err != nil {
		return fmt.Errorf("resolve device %s: %w", token.DeviceHost, err)
	}

	sess := c.sessions.NewSession()
	defer c.release(sess, logger)

	if err := sess.Connect(ctx, addr); err != nil {
		metrics.ObserveConnectFailure(connectFailureKind(err))
		return fmt.Errorf("connect %s: %w", addr, err)
	}

	out, err := sess.SendConfigSet(ctx, EnableInterfaceCommands(token.InterfaceName))
	if err != nil {
		return fmt.Errorf("configure %s: %w", token.InterfaceName, err)
	}
	logger.Info("interface enabled", slog.String("output", out))
	return nil
}

func (c *Controller) autoRemediate(ctx context.Context, sess outbound.DeviceSession, iface string, logger *slog.Logger) {
	if err := c.guard.Allow(iface); err != nil {
		metrics.ObserveRemediation(triggerAuto, metrics.OutcomeSkipped)
		logger.Warn("automatic remediation skipped", slog.Any("error", err))
		return
	}

	logger.Info("bringing interface back up")
	out, err := sess.SendConfigSet(ctx, EnableInterfaceCommands(iface))
	if err != nil {
		metrics.ObserveRemediation(triggerAuto, metrics.OutcomeError)
		logger.Error("configuration command failed", slog.Any("error", err))
		return
	}
	metrics.ObserveRemediation(triggerAuto, metrics.OutcomeSuccess)
	logger.Info("interface should be coming back up", slog.String("output", out))
}

// readDescription returns "" when the name is unsafe or the read fails.
func (c *Controller) readDescription(ctx context.Context, sess outbound.DeviceSession, iface string, logger *slog.Logger) string {
	if err := c.guard.Validate(iface); err != nil {
		logger.Warn("skipping description lookup", slog.Any("error", err))
		return ""
	}
	out, err := sess.SendCommand(ctx, DescriptionCommand(iface))
	if err != nil {
		logger.Warn("description lookup failed", slog.Any("error", err))
		return ""
	}
	return ExtractDescription(out)
}

// ExtractDescription pulls the description text out of "show interface" output.
func ExtractDescription(output string) string {
	m := descriptionPattern.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func (c *Controller) reportConnectFailure(ctx context.Context, host, addr string, cause error, logger *slog.Logger) {
	kind := connectFailureKind(cause)
	metrics.ObserveConnectFailure(kind)
	logger.Error("device connection failed",
		slog.String("address", addr),
		slog.String("kind", kind),
		slog.Any("error", cause),
	)

	detail := fmt.Sprintf("Device settings: %s:%d", addr, c.devicePort)
	if c.diagnostics != nil && !errors.Is(cause, outbound.ErrAuthentication) {
		if report := c.diagnostics.Diagnose(ctx, addr); report != "" {
			detail += "\n\n" + report
		}
	}

	err := c.notifier.NotifyError(ctx, c.composer.ComposeError(host, cause, detail))
	metrics.ObserveNotification("error", err)
	if err != nil {
		logger.Error("error notification failed", slog.Any("error", err))
	}
}

func (c *Controller) respond(ctx context.Context, f outbound.FollowUp, logger *slog.Logger) {
	if f.ResponseURL == "" {
		logger.Warn("no response URL, follow-up dropped", slog.String("text", f.Text))
		return
	}
	err := c.notifier.Respond(ctx, f)
	metrics.ObserveNotification("follow_up", err)
	if err != nil {
		logger.Error("follow-up delivery failed", slog.Any("error", err))
	}
}

func (c *Controller) release(sess outbound.DeviceSession, logger *slog.Logger) {
	if err := sess.Disconnect(); err != nil {
		logger.Warn("device disconnect failed", slog.Any("error", err))
	}
}

func connectFailureKind(err error) string {
	switch {
	case errors.Is(err, outbound.ErrConnectionTimeout):
		return "timeout"
	case errors.Is(err, outbound.ErrAuthentication):
		return "auth"
	default:
		return "other"
	}
}

func remediationOutcome(err error) string {
	if errors.Is(err, outbound.ErrProtectedInterface) || errors.Is(err, outbound.ErrInvalidInterfaceName) {
		return metrics.OutcomeSkipped
	}
	return metrics.OutcomeError
}
