// Package eventenv reads the triggering interface event from the process
// environment, the way the event bus hands it to the process.
package eventenv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jonny/ifremediator/internal/domain/model"
	"github.com/jonny/ifremediator/internal/domain/port/inbound"
)

const (
	EnvHost     = "EVENT_HOST"
	EnvMessage  = "EVENT_MESSAGE"
	EnvMnemonic = "EVENT_CISCO_MNEMONIC"
	EnvSeverity = "EVENT_SEVERITY"
	EnvUserTags = "EVENT_USER_TAGS"

	envPrefix = "EVENT_"
)

var ErrMissingHost = errors.New("event host not set")

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Source builds a RawEvent from EVENT_* variables.
type Source struct {
	lookup      LookupFunc
	environ     func() []string
	defaultHost string
	logger      *slog.Logger
}

var _ inbound.EventSource = (*Source)(nil)

// NewSource reads the real environment. defaultHost is used when EVENT_HOST
// is unset.
func NewSource(defaultHost string, logger *slog.Logger) *Source {
	return &Source{
		lookup:      os.LookupEnv,
		environ:     os.Environ,
		defaultHost: defaultHost,
		logger:      logger,
	}
}

// WithLookup replaces the environment, mainly for tests.
func (s *Source) WithLookup(lookup LookupFunc, environ func() []string) *Source {
	s.lookup = lookup
	s.environ = environ
	return s
}

// LoadEnvFile merges a dotenv file into the process environment without
// overriding variables that are already set.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load returns the event. A missing host is an error; a bad severity or tag
// document is logged and replaced by its default.
func (s *Source) Load(ctx context.Context) (model.RawEvent, error) {
	s.debugDump(ctx)

	host := s.get(EnvHost)
	if host == "" {
		host = s.defaultHost
	}
	if host == "" {
		return model.RawEvent{}, fmt.Errorf("%w: %s is empty", ErrMissingHost, EnvHost)
	}

	return model.RawEvent{
		Host:     host,
		Message:  s.get(EnvMessage),
		Mnemonic: s.get(EnvMnemonic),
		Severity: s.severity(),
		Tags:     s.tags(),
	}, nil
}

func (s *Source) get(key string) string {
	v, _ := s.lookup(key)
	return strings.TrimSpace(v)
}

func (s *Source) severity() int {
	raw := s.get(EnvSeverity)
	if raw == "" {
		return model.DefaultSeverity
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("invalid event severity, using default",
			slog.String("value", raw),
			slog.Int("default", model.DefaultSeverity),
		)
		return model.DefaultSeverity
	}
	return model.ClampSeverity(n)
}

// tags decodes EVENT_USER_TAGS, a flat JSON object. Non-string values are
// kept in their JSON text form.
func (s *Source) tags() map[string]string {
	raw := s.get(EnvUserTags)
	if raw == "" {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.logger.Warn("ignoring malformed event user tags", slog.Any("error", err))
		return nil
	}
	tags := make(map[string]string, len(doc))
	for k, v := range doc {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			tags[k] = str
			continue
		}
		tags[k] = string(v)
	}
	return tags
}

func (s *Source) debugDump(ctx context.Context) {
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	var vars []string
	for _, kv := range s.environ() {
		if strings.HasPrefix(kv, envPrefix) {
			vars = append(vars, kv)
		}
	}
	sort.Strings(vars)
	s.logger.Debug("incoming event variables", slog.Any("vars", vars))
}
