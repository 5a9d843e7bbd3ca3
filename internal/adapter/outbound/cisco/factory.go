package cisco

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

// Config holds device credentials and transport settings shared by all sessions.
type Config struct {
	Username     string
	Password     string
	EnableSecret string
	Port         int
	Timeout      time.Duration
	// KnownHostsFile pins device host keys. Empty accepts any key.
	KnownHostsFile string
}

// SessionFactory hands out fresh SSH sessions that share one Config.
type SessionFactory struct {
	cfg             Config
	hostKeyCallback ssh.HostKeyCallback
	logger          *slog.Logger
}

// NewSessionFactory validates cfg and loads the known hosts file, if any.
func NewSessionFactory(cfg Config, logger *slog.Logger) (*SessionFactory, error) {
	if cfg.Username == "" {
		return nil, fmt.Errorf("device username is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	callback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts %s: %w", cfg.KnownHostsFile, err)
		}
		callback = cb
	} else {
		logger.Warn("device host keys are not verified; set device.knownHostsFile to pin them")
	}

	return &SessionFactory{cfg: cfg, hostKeyCallback: callback, logger: logger}, nil
}

var _ outbound.DeviceSessionFactory = (*SessionFactory)(nil)

func (f *SessionFactory) NewSession() outbound.DeviceSession {
	return &Session{
		cfg:             f.cfg,
		hostKeyCallback: f.hostKeyCallback,
		logger:          f.logger,
	}
}
