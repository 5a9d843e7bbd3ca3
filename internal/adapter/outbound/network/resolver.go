package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

var ErrUnresolvable = errors.New("unable to resolve device host")

// LookupFunc resolves a host name to addresses.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Resolver maps event hosts to dialable addresses. IP literals pass through,
// names go to DNS, and a configured fallback IP covers lookup failures.
type Resolver struct {
	fallbackIP string
	lookup     LookupFunc
	logger     *slog.Logger
}

func NewResolver(fallbackIP string, logger *slog.Logger) *Resolver {
	return &Resolver{
		fallbackIP: fallbackIP,
		lookup:     net.DefaultResolver.LookupHost,
		logger:     logger,
	}
}

// WithLookup replaces the DNS lookup, mainly for tests.
func (r *Resolver) WithLookup(fn LookupFunc) *Resolver {
	cp := *r
	cp.lookup = fn
	return &cp
}

var _ outbound.HostResolver = (*Resolver)(nil)

func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	if host == "" && r.fallbackIP == "" {
		return "", fmt.Errorf("%w: empty host", ErrUnresolvable)
	}
	if net.ParseIP(host) != nil {
		r.logger.Debug("host is already an IP address", slog.String("host", host))
		return host, nil
	}

	var lookupErr error
	if host != "" {
		addrs, err := r.lookup(ctx, host)
		if err == nil && len(addrs) > 0 {
			addr := preferIPv4(addrs)
			r.logger.Debug("resolved host", slog.String("host", host), slog.String("address", addr))
			return addr, nil
		}
		lookupErr = err
		if lookupErr == nil {
			lookupErr = errors.New("no addresses returned")
		}
		r.logger.Error("unable to resolve host", slog.String("host", host), slog.Any("error", lookupErr))
	}

	if r.fallbackIP != "" {
		r.logger.Warn("using fallback IP address", slog.String("host", host), slog.String("fallback_ip", r.fallbackIP))
		return r.fallbackIP, nil
	}
	return "", fmt.Errorf("%w: %s: %v", ErrUnresolvable, host, lookupErr)
}

func preferIPv4(addrs []string) string {
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a
		}
	}
	return addrs[0]
}
