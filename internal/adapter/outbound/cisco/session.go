package cisco

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/jonny/ifremediator/internal/domain/port/outbound"
)

const (
	DefaultPort    = 22
	DefaultTimeout = 10 * time.Second

	terminalWidth  = 511
	terminalHeight = 0
	readChunkSize  = 4096
)

var (
	// promptPattern matches an IOS exec or config prompt at the end of the
	// buffered output: "switch>", "switch#", "switch(config-if)#".
	promptPattern   = regexp.MustCompile(`[\w.\-@/:()]+[>#]\s*$`)
	passwordPattern = regexp.MustCompile(`(?i)password:\s*$`)

	// IOS marks rejected configuration lines with one of these.
	rejectionMarkers = []string{"% Invalid input", "% Incomplete command", "% Ambiguous command", "% Unknown command"}

	ErrCommandRejected = errors.New("device rejected command")
	errReadTimeout     = errors.New("timed out waiting for device prompt")
)

// Session is an interactive IOS CLI session over SSH. A Session serves one
// operation and is not safe for concurrent use.
type Session struct {
	cfg             Config
	hostKeyCallback ssh.HostKeyCallback
	logger          *slog.Logger

	mu     sync.Mutex
	client *ssh.Client
	shell  *ssh.Session
	stdin  io.WriteCloser
	output chan []byte
	done   chan struct{}
	buf    bytes.Buffer
	addr   string
}

var _ outbound.DeviceSession = (*Session)(nil)

// Connect dials host, authenticates with the configured credentials and opens
// a shell with paging disabled. Timeouts wrap outbound.ErrConnectionTimeout and
// rejected credentials wrap outbound.ErrAuthentication.
func (s *Session) Connect(ctx context.Context, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return fmt.Errorf("session already connected to %s", s.addr)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(s.cfg.Port))
	s.logger.Info("connecting to device", slog.String("address", addr))
	start := time.Now()

	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return s.classify(addr, err, start)
	}
	// Bounds the SSH handshake; cleared once the shell is up.
	if err := conn.SetDeadline(start.Add(s.cfg.Timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("set deadline on %s: %w", addr, err)
	}

	clientConfig := &ssh.ClientConfig{
		User: s.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(s.cfg.Password),
			ssh.KeyboardInteractive(s.keyboardInteractive),
		},
		HostKeyCallback: s.hostKeyCallback,
		Timeout:         s.cfg.Timeout,
	}
	cc, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return s.classify(addr, err, start)
	}
	client := ssh.NewClient(cc, chans, reqs)

	shell, stdin, stdout, err := openShell(client)
	if err != nil {
		client.Close()
		return s.classify(addr, err, start)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		shell.Close()
		client.Close()
		return fmt.Errorf("clear deadline on %s: %w", addr, err)
	}

	s.client, s.shell, s.stdin, s.addr = client, shell, stdin, addr
	s.output = make(chan []byte, 16)
	s.done = make(chan struct{})
	s.buf.Reset()
	go pump(stdout, s.output, s.done)

	if err := s.prepare(ctx); err != nil {
		s.closeLocked()
		return s.classify(addr, err, start)
	}
	s.logger.Info("connected to device", slog.String("address", addr), slog.Duration("elapsed", time.Since(start)))
	return nil
}

// SendCommand runs one exec command and returns its output without the
// echoed command line and trailing prompt.
func (s *Session) SendCommand(ctx context.Context, command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return "", outbound.ErrNotConnected
	}
	out, err := s.exchange(ctx, command, promptPattern)
	if err != nil {
		return "", fmt.Errorf("send %q: %w", command, err)
	}
	return cleanOutput(out, command), nil
}

// SendConfigSet enters configuration mode, sends lines in order and returns to
// exec mode. It fails on the first line the device rejects.
func (s *Session) SendConfigSet(ctx context.Context, lines []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return "", outbound.ErrNotConnected
	}

	var transcript strings.Builder
	for _, line := range append(append([]string{"configure terminal"}, lines...), "end") {
		out, err := s.exchange(ctx, line, promptPattern)
		transcript.WriteString(out)
		if err != nil {
			return transcript.String(), fmt.Errorf("config %q: %w", line, err)
		}
		if marker := rejection(out); marker != "" {
			// Leave configuration mode before reporting.
			if line != "end" {
				_, _ = s.exchange(ctx, "end", promptPattern)
			}
			return transcript.String(), fmt.Errorf("%w: %q: %s", ErrCommandRejected, line, marker)
		}
	}
	return transcript.String(), nil
}

// Disconnect closes the shell and the transport. It is safe to call on an
// unconnected or already closed session.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.client == nil {
		return nil
	}
	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "exit\n")
	}
	if s.shell != nil {
		s.shell.Close()
	}
	close(s.done)
	err := s.client.Close()
	s.logger.Debug("disconnected from device", slog.String("address", s.addr))
	s.client, s.shell, s.stdin = nil, nil, nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close %s: %w", s.addr, err)
	}
	return nil
}

// prepare waits for the first prompt, enters privileged mode when needed and
// disables paging.
func (s *Session) prepare(ctx context.Context) error {
	banner, err := s.readUntil(ctx, promptPattern)
	if err != nil {
		return err
	}
	if strings.HasSuffix(strings.TrimSpace(banner), ">") && s.cfg.EnableSecret != "" {
		if _, err := s.exchange(ctx, "enable", passwordPattern); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
		if _, err := s.exchange(ctx, s.cfg.EnableSecret, promptPattern); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}
	if _, err := s.exchange(ctx, "terminal length 0", promptPattern); err != nil {
		return fmt.Errorf("disable paging: %w", err)
	}
	return nil
}

func (s *Session) exchange(ctx context.Context, line string, until *regexp.Regexp) (string, error) {
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		return "", err
	}
	return s.readUntil(ctx, until)
}

// readUntil consumes output until pattern matches the end of the buffer, the
// command timeout elapses or ctx is done.
func (s *Session) readUntil(ctx context.Context, pattern *regexp.Regexp) (string, error) {
	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	for {
		if pattern.Match(s.buf.Bytes()) {
			out := s.buf.String()
			s.buf.Reset()
			return out, nil
		}
		select {
		case chunk, ok := <-s.output:
			if !ok {
				return s.buf.String(), io.ErrUnexpectedEOF
			}
			s.buf.Write(chunk)
		case <-timer.C:
			return s.buf.String(), errReadTimeout
		case <-ctx.Done():
			return s.buf.String(), ctx.Err()
		}
	}
}

func (s *Session) keyboardInteractive(_, _ string, questions []string, _ []bool) ([]string, error) {
	answers := make([]string, len(questions))
	for i := range questions {
		answers[i] = s.cfg.Password
	}
	return answers, nil
}

func (s *Session) classify(addr string, err error, start time.Time) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout(),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, errReadTimeout),
		time.Since(start) >= s.cfg.Timeout:
		return fmt.Errorf("%w: TCP connection to device %s failed: %v", outbound.ErrConnectionTimeout, addr, err)
	case strings.Contains(err.Error(), "unable to authenticate"):
		return fmt.Errorf("%w: authentication to device %s failed: %v", outbound.ErrAuthentication, addr, err)
	default:
		return fmt.Errorf("connection error to %s: %w", addr, err)
	}
}

func openShell(client *ssh.Client) (*ssh.Session, io.WriteCloser, io.Reader, error) {
	shell, err := client.NewSession()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open session: %w", err)
	}
	stdin, err := shell.StdinPipe()
	if err != nil {
		shell.Close()
		return nil, nil, nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := shell.StdoutPipe()
	if err != nil {
		shell.Close()
		return nil, nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := shell.RequestPty("vt100", terminalHeight, terminalWidth, modes); err != nil {
		shell.Close()
		return nil, nil, nil, fmt.Errorf("request pty: %w", err)
	}
	if err := shell.Shell(); err != nil {
		shell.Close()
		return nil, nil, nil, fmt.Errorf("start shell: %w", err)
	}
	return shell, stdin, stdout, nil
}

// pump copies r into out until r fails or done is closed, then closes out.
func pump(r io.Reader, out chan<- []byte, done <-chan struct{}) {
	defer close(out)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// cleanOutput drops the echoed command and the trailing prompt line.
func cleanOutput(out, command string) string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	lines := strings.Split(out, "\n")
	if len(lines) > 0 && strings.Contains(lines[0], command) {
		lines = lines[1:]
	}
	if len(lines) > 0 && promptPattern.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func rejection(out string) string {
	for _, marker := range rejectionMarkers {
		if strings.Contains(out, marker) {
			return marker
		}
	}
	return ""
}
