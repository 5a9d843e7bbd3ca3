package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jonny/ifremediator/internal/adapter/inbound/callback"
	"github.com/jonny/ifremediator/internal/adapter/inbound/callback/middleware"
	"github.com/jonny/ifremediator/internal/adapter/inbound/eventenv"
	"github.com/jonny/ifremediator/internal/adapter/inbound/slackbot"
	"github.com/jonny/ifremediator/internal/adapter/outbound/cisco"
	"github.com/jonny/ifremediator/internal/adapter/outbound/network"
	"github.com/jonny/ifremediator/internal/adapter/outbound/notification"
	slacknotifier "github.com/jonny/ifremediator/internal/adapter/outbound/notification/slack"
	"github.com/jonny/ifremediator/internal/config"
	"github.com/jonny/ifremediator/internal/domain/model"
	"github.com/jonny/ifremediator/internal/domain/port/inbound"
	"github.com/jonny/ifremediator/internal/domain/port/outbound"
	"github.com/jonny/ifremediator/internal/domain/service"
	"github.com/jonny/ifremediator/internal/metrics"
	"github.com/jonny/ifremediator/pkg/health"
	"github.com/jonny/ifremediator/pkg/version"
)

const (
	modeAll   = "all"
	modeEvent = "event"
	modeServe = "serve"

	// socketModeCallbackTarget enables buttons when clicks arrive over Socket
	// Mode and no public callback URL is configured.
	socketModeCallbackTarget = "slack://socket-mode"
)

func main() {
	configPath := flag.String("config", config.PathFromEnv(), "path to config file")
	mode := flag.String("mode", modeAll, "run mode: all (event run + callback listener), event, serve")
	envFile := flag.String("env-file", "", "optional dotenv file loaded before reading EVENT_* variables")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := validateMode(*mode); err != nil {
		logger.Error("invalid flags", "error", err)
		os.Exit(2)
	}

	if *envFile != "" {
		if err := eventenv.LoadEnvFile(*envFile); err != nil {
			logger.Error("failed to load env file", "error", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mode, logger); err != nil {
		logger.Error("ifremediator exited with error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("ifremediator stopped")
}

func run(ctx context.Context, cfg *config.Config, mode string, logger *slog.Logger) error {
	// --- Notifier ---
	checker := health.NewChecker()
	var notifier outbound.Notifier
	if cfg.Slack.PostURL == "" {
		logger.Warn("slack.postURL not configured, notifications will only be logged")
		notifier = notification.NewNoopNotifier(logger)
	} else {
		slackNotifier := slacknotifier.NewNotifier(slacknotifier.Config{
			PostURL:        cfg.Slack.PostURL,
			DefaultChannel: cfg.Slack.DefaultChannel,
			Timeout:        cfg.Slack.Timeout,
		}, logger)
		checker.Register("slack", slackNotifier.HealthCheck)
		notifier = slackNotifier
	}

	// --- Device access ---
	sessions, err := cisco.NewSessionFactory(cisco.Config{
		Username:       cfg.Device.Username,
		Password:       cfg.Device.Password,
		EnableSecret:   cfg.Device.EnableSecret,
		Port:           cfg.Device.Port,
		Timeout:        cfg.Device.Timeout,
		KnownHostsFile: cfg.Device.KnownHostsFile,
	}, logger)
	if err != nil {
		return fmt.Errorf("device sessions: %w", err)
	}

	// --- Domain services ---
	callbackTarget := cfg.Remediation.CallbackBaseURL
	if callbackTarget == "" && cfg.Slack.SocketMode {
		callbackTarget = socketModeCallbackTarget
	}
	if cfg.Remediation.UseInteractiveButtons && callbackTarget == "" {
		logger.Warn("interactive buttons enabled but no callback URL configured, buttons will be omitted")
	}

	controller := service.NewController(
		service.NewComposer(callbackTarget),
		service.Dependencies{
			Sessions:    sessions,
			Resolver:    network.NewResolver(cfg.Device.FallbackIP, logger),
			Diagnostics: network.NewProber(cfg.Device.Port, network.ExecRunner, logger),
			Notifier:    notifier,
			Guard:       cisco.NewGuard(cisco.GuardConfig{Protected: cfg.Device.ProtectedInterfaces}),
		},
		service.ControllerConfig{
			Policy: model.RemediationPolicy{
				UseInteractiveButtons: cfg.Remediation.UseInteractiveButtons,
				BringInterfaceUp:      cfg.Remediation.BringInterfaceUp,
			},
			DevicePort: cfg.Device.Port,
		},
		logger,
	)

	g, gCtx := errgroup.WithContext(ctx)

	if mode != modeEvent {
		startListeners(gCtx, g, cfg, controller, checker, logger)
	}

	if mode != modeServe {
		source := eventenv.NewSource(cfg.Event.DefaultHost, logger)
		g.Go(func() error {
			return runEvent(gCtx, source, controller, logger)
		})
	}

	logger.Info("ifremediator started", "version", version.String(), "mode", mode)
	return g.Wait()
}

// runEvent handles the one event this process was started for. Only an
// unparseable or unresolvable event is an error.
func runEvent(ctx context.Context, source inbound.EventSource, port inbound.EventPort, logger *slog.Logger) error {
	raw, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if err := port.HandleEvent(ctx, raw); err != nil {
		return fmt.Errorf("handle event from %s: %w", raw.Host, err)
	}
	logger.Info("event run complete", "host", raw.Host)
	return nil
}

func startListeners(ctx context.Context, g *errgroup.Group, cfg *config.Config, port inbound.CallbackPort, checker *health.Checker, logger *slog.Logger) {
	// Callback HTTP server.
	callbackServer := callback.NewServer(callback.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		RateLimit:    cfg.Server.RateLimitPerMinute(),
		Verify: middleware.VerifyConfig{
			SigningSecret: cfg.Slack.SigningSecret,
			VerifyToken:   cfg.Slack.VerifyToken,
		},
	}, callback.NewHandler(port, logger), logger)
	g.Go(func() error {
		logger.Info("starting callback server", "port", cfg.Server.Port)
		return callbackServer.Start(ctx)
	})

	// Metrics/health server.
	if cfg.Server.MetricsPort != 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
		metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
		metricsServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			Handler:           metricsMux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Server.MetricsPort)
			errCh := make(chan error, 1)
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return metricsServer.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		})
	}

	// Slack Socket Mode receiver (optional).
	if cfg.Slack.SocketMode {
		botToken := ""
		if slacknotifier.UsesBotToken(cfg.Slack.PostURL) {
			botToken = cfg.Slack.PostURL
		}
		g.Go(func() error {
			bot, err := slackbot.NewBot(slackbot.Config{BotToken: botToken, AppToken: cfg.Slack.AppToken}, port, logger)
			if err != nil {
				return err
			}
			return bot.Start(ctx)
		})
	} else {
		logger.Info("slack socket mode disabled")
	}
}

func validateMode(mode string) error {
	switch mode {
	case modeAll, modeEvent, modeServe:
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want %s, %s or %s)", mode, modeAll, modeEvent, modeServe)
	}
}

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}
