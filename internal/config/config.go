package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither -config nor CONFIG_FILE is given.
const DefaultPath = "configs/config.yaml"

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Device      DeviceConfig      `yaml:"device"`
	Slack       SlackConfig       `yaml:"slack"`
	Remediation RemediationConfig `yaml:"remediation"`
	Event       EventConfig       `yaml:"event"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	MetricsPort     int             `yaml:"metricsPort"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
}

// DeviceConfig holds the SSH credentials shared by every managed device.
type DeviceConfig struct {
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	EnableSecret string        `yaml:"enableSecret"`
	Port         int           `yaml:"port"`
	Timeout      time.Duration `yaml:"timeout"`
	// KnownHostsFile enables host key checking; empty accepts any key.
	KnownHostsFile string `yaml:"knownHostsFile"`
	// FallbackIP is dialled when the event host does not resolve.
	FallbackIP          string   `yaml:"fallbackIP"`
	ProtectedInterfaces []string `yaml:"protectedInterfaces"`
}

type SlackConfig struct {
	// PostURL is an incoming-webhook URL or a bot token (xoxb-).
	PostURL        string        `yaml:"postURL"`
	DefaultChannel string        `yaml:"defaultChannel"`
	Timeout        time.Duration `yaml:"timeout"`
	VerifyToken    string        `yaml:"verifyToken"`
	SigningSecret  string        `yaml:"signingSecret"`
	AppToken       string        `yaml:"appToken"`
	SocketMode     bool          `yaml:"socketMode"`
}

type RemediationConfig struct {
	UseInteractiveButtons bool `yaml:"useInteractiveButtons"`
	BringInterfaceUp      bool `yaml:"bringInterfaceUp"`
	// CallbackBaseURL is the public address of the callback listener.
	// Buttons are only rendered when it is set.
	CallbackBaseURL string `yaml:"callbackBaseURL"`
}

type EventConfig struct {
	// DefaultHost stands in for an empty EVENT_HOST.
	DefaultHost string `yaml:"defaultHost"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// PathFromEnv returns CONFIG_FILE or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads a YAML config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsPort:     9090,
			RateLimit:       RateLimitConfig{Enabled: true, RequestsPerMinute: 60},
		},
		Device: DeviceConfig{
			Port:    22,
			Timeout: 10 * time.Second,
		},
		Slack: SlackConfig{
			Timeout: 10 * time.Second,
		},
		Remediation: RemediationConfig{
			BringInterfaceUp: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides lets deployment secrets and the listener port bypass the
// config file.
func applyEnvOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv("SLACK_VERIFY_TOKEN"); ok && v != "" {
		cfg.Slack.VerifyToken = v
	}
	if v, ok := os.LookupEnv("SLACK_SIGNING_SECRET"); ok && v != "" {
		cfg.Slack.SigningSecret = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}

// RateLimitPerMinute is the effective callback limit; 0 means unlimited.
func (c ServerConfig) RateLimitPerMinute() int {
	if !c.RateLimit.Enabled {
		return 0
	}
	return c.RateLimit.RequestsPerMinute
}
