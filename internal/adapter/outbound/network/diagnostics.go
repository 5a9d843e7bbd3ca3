package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

const (
	pingTimeout       = 5 * time.Second
	portProbeTimeout  = 3 * time.Second
	tracerouteTimeout = 10 * time.Second
)

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// ExecRunner runs commands on the local host.
func ExecRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// Prober gathers reachability facts about a device that refused or dropped a
// connection: ICMP reachability, the SSH port state and the route to it.
type Prober struct {
	port   int
	run    Runner
	logger *slog.Logger
}

func NewProber(port int, run Runner, logger *slog.Logger) *Prober {
	if run == nil {
		run = ExecRunner
	}
	return &Prober{port: port, run: run, logger: logger}
}

var _ outbound.Diagnostics = (*Prober)(nil)

// Diagnose runs the three checks concurrently and reports them in a fixed order.
func (p *Prober) Diagnose(ctx context.Context, host string) string {
	var ping, port, route string

	var g errgroup.Group
	g.Go(func() error {
		ping = p.ping(ctx, host)
		return nil
	})
	g.Go(func() error {
		port = p.probePort(ctx, host)
		return nil
	})
	g.Go(func() error {
		route = p.traceroute(ctx, host)
		return nil
	})
	_ = g.Wait()

	p.logger.Debug("diagnostics complete", slog.String("host", host))
	return strings.Join([]string{"Diagnostic Information:", ping, port, route}, "\n")
}

func (p *Prober) ping(ctx context.Context, host string) string {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	out, err := p.run(ctx, "ping", "-c", "3", "-W", "2", host)
	switch {
	case err == nil:
		return fmt.Sprintf(":white_check_mark: Host %s is reachable via ICMP (ping)", host)
	case isMissingBinary(err):
		return fmt.Sprintf(":warning: Unable to run ping test: %v", err)
	default:
		return fmt.Sprintf(":x: Host %s is NOT reachable via ICMP (ping)\nPing output: %s", host, strings.TrimSpace(out))
	}
}

func (p *Prober) probePort(ctx context.Context, host string) string {
	addr := net.JoinHostPort(host, strconv.Itoa(p.port))
	dialer := net.Dialer{Timeout: portProbeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Sprintf(":x: SSH port (%d) on %s is closed or filtered (%v)", p.port, host, err)
	}
	conn.Close()
	return fmt.Sprintf(":white_check_mark: SSH port (%d) on %s is open", p.port, host)
}

func (p *Prober) traceroute(ctx context.Context, host string) string {
	ctx, cancel := context.WithTimeout(ctx, tracerouteTimeout)
	defer cancel()

	out, err := p.run(ctx, "traceroute", "-n", "-w", "2", "-m", "10", host)
	switch {
	case err == nil:
		return fmt.Sprintf("Network route to %s:\n%s", host, strings.TrimSpace(out))
	case isMissingBinary(err):
		return fmt.Sprintf(":warning: Unable to run traceroute: %v", err)
	default:
		return fmt.Sprintf(":x: Traceroute to %s failed", host)
	}
}

func isMissingBinary(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr)
}
