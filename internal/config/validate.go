package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 0 and 65535")
	}
	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort == cfg.Server.Port {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}
	if cfg.Server.RateLimit.Enabled && cfg.Server.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "server.rateLimit.requestsPerMinute must be positive when rate limiting is enabled")
	}

	if cfg.Device.Username == "" {
		errs = append(errs, "device.username is required")
	}
	if cfg.Device.Port <= 0 || cfg.Device.Port > 65535 {
		errs = append(errs, "device.port must be between 1 and 65535")
	}
	if cfg.Device.Timeout <= 0 {
		errs = append(errs, "device.timeout must be positive")
	}
	if cfg.Device.FallbackIP != "" && net.ParseIP(cfg.Device.FallbackIP) == nil {
		errs = append(errs, fmt.Sprintf("device.fallbackIP must be an IP address (got %q)", cfg.Device.FallbackIP))
	}

	if cfg.Slack.Timeout <= 0 {
		errs = append(errs, "slack.timeout must be positive")
	}
	if cfg.Slack.SocketMode && cfg.Slack.AppToken == "" {
		errs = append(errs, "slack.appToken is required when slack.socketMode is enabled")
	}
	if cfg.Slack.AppToken != "" && !strings.HasPrefix(cfg.Slack.AppToken, "xapp-") {
		errs = append(errs, "slack.appToken must be an app-level token (xapp-)")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}
	validOutputs := map[string]bool{"stdout": true, "stderr": true}
	if !validOutputs[cfg.Logging.Output] {
		errs = append(errs, fmt.Sprintf("logging.output must be stdout or stderr (got %q)", cfg.Logging.Output))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
