package callback_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonny/ifremediator/internal/adapter/inbound/callback"
	"github.com/jonny/ifremediator/internal/adapter/inbound/callback/middleware"
	"github.com/jonny/ifremediator/internal/domain/model"
	"github.com/jonny/ifremediator/internal/domain/port/inbound"
	"github.com/jonny/ifremediator/internal/domain/port/outbound"
	"github.com/jonny/ifremediator/internal/domain/service"
)

// fakePort records dispatched callbacks for assertion in tests.
type fakePort struct {
	mu       sync.Mutex
	requests []model.CallbackRequest
	err      error
}

func (f *fakePort) HandleCallback(ctx context.Context, req model.CallbackRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.err
}

func (f *fakePort) dispatched() []model.CallbackRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CallbackRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func blockPayload(actionID, value string) string {
	return fmt.Sprintf(`{
		"type": "block_actions",
		"token": "s3cret",
		"user": {"id": "U123", "name": "jdoe"},
		"response_url": "https://hooks.slack.test/actions/T1/123/abc",
		"actions": [
			{"type": "button", "block_id": "interface_remediation", "action_id": %q, "value": %q, "action_ts": "1700000000.000100"}
		]
	}`, actionID, value)
}

func postForm(h http.Handler, path, payload string, header http.Header) *httptest.ResponseRecorder {
	body := url.Values{"payload": {payload}}.Encode()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	return rw
}

func TestHandler_FixInterface(t *testing.T) {
	port := &fakePort{}
	h := callback.NewHandler(port, discardLogger())

	rw := postForm(h, "/actions", blockPayload("fix_interface", "sw1.example.net|GigabitEthernet0/1"), nil)

	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rw.Code, rw.Body.String())
	}
	if rw.Body.String() != "Processing" {
		t.Errorf("body = %q", rw.Body.String())
	}
	got := port.dispatched()
	if len(got) != 1 {
		t.Fatalf("dispatched %d requests", len(got))
	}
	req := got[0]
	if req.ActionID != model.ActionFixInterface {
		t.Errorf("action = %q", req.ActionID)
	}
	if req.Token.DeviceHost != "sw1.example.net" || req.Token.InterfaceName != "GigabitEthernet0/1" {
		t.Errorf("token = %+v", req.Token)
	}
	if req.ResponseURL != "https://hooks.slack.test/actions/T1/123/abc" {
		t.Errorf("response url = %q", req.ResponseURL)
	}
	if req.UserID != "U123" || req.UserName != "jdoe" {
		t.Errorf("user = %q / %q", req.UserID, req.UserName)
	}
}

func TestHandler_Acknowledge(t *testing.T) {
	port := &fakePort{}
	rw := postForm(callback.NewHandler(port, discardLogger()), "/actions", blockPayload("acknowledge", "sw1|Gi0/1"), nil)

	if rw.Code != http.StatusOK || rw.Body.String() != "Acknowledged" {
		t.Errorf("status = %d, body %q", rw.Code, rw.Body.String())
	}
}

func TestHandler_LegacyAttachmentAction(t *testing.T) {
	port := &fakePort{}
	payload := `{"actions":[{"name":"fix_interface","type":"button","value":"sw1|Gi0/2"}],"response_url":"https://hooks.slack.test/r"}`

	rw := postForm(callback.NewHandler(port, discardLogger()), "/actions", payload, nil)

	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rw.Code, rw.Body.String())
	}
	if got := port.dispatched(); len(got) != 1 || got[0].Token.InterfaceName != "Gi0/2" {
		t.Errorf("dispatched = %+v", got)
	}
}

func TestHandler_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		portErr  error
		wantCode int
		wantBody string
	}{
		{"malformed json", `{not json`, nil, http.StatusBadRequest, "Invalid payload format"},
		{"empty payload", ``, nil, http.StatusBadRequest, "Invalid payload format"},
		{"no actions", `{"type":"block_actions","actions":[]}`, nil, http.StatusBadRequest, "No action found"},
		{"unknown action", blockPayload("reboot", "sw1|Gi0/1"), fmt.Errorf("%w: %q", inbound.ErrUnknownAction, "reboot"), http.StatusBadRequest, "Unknown action"},
		{"remediation failed", blockPayload("fix_interface", "sw1|Gi0/1"), fmt.Errorf("%w: connect: timeout", inbound.ErrRemediationFailed), http.StatusInternalServerError, "Configuration error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakePort{err: tt.portErr}
			rw := postForm(callback.NewHandler(port, discardLogger()), "/actions", tt.payload, nil)

			if rw.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rw.Code, tt.wantCode)
			}
			if !strings.Contains(rw.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", rw.Body.String(), tt.wantBody)
			}
			if strings.Contains(rw.Body.String(), "timeout") {
				t.Errorf("error detail leaked: %q", rw.Body.String())
			}
		})
	}
}

func TestHandler_InvalidToken(t *testing.T) {
	for _, value := range []string{"no-separator", "a|b|c", "|Gi0/1", "sw1|"} {
		t.Run(value, func(t *testing.T) {
			port := &fakePort{}
			rw := postForm(callback.NewHandler(port, discardLogger()), "/actions", blockPayload("fix_interface", value), nil)

			if rw.Code != http.StatusBadRequest || !strings.Contains(rw.Body.String(), "Invalid action format") {
				t.Errorf("status = %d, body %q", rw.Code, rw.Body.String())
			}
			if len(port.dispatched()) != 0 {
				t.Error("invalid token must not be dispatched")
			}
		})
	}
}

// plainPayload is the minimal interaction body: no block_id, no type.
func plainPayload(actionID, value string) string {
	return fmt.Sprintf(`{"actions":[{"action_id":%q,"value":%q}],"response_url":"https://hooks.slack.test/r/9"}`, actionID, value)
}

func TestHandler_PlainActionPayload(t *testing.T) {
	tests := []struct {
		name         string
		actionID     string
		value        string
		portErr      error
		wantCode     int
		wantBody     string
		wantDispatch bool
	}{
		{"fix", "fix_interface", "sw1|Gi0/1", nil, http.StatusOK, "Processing", true},
		{"acknowledge", "acknowledge", "sw1|Gi0/1", nil, http.StatusOK, "Acknowledged", true},
		{"unknown action", "noop", "sw1|Gi0/1", fmt.Errorf("%w: %q", inbound.ErrUnknownAction, "noop"), http.StatusBadRequest, "Unknown action", true},
		{"bad token", "fix_interface", "devicex-interface", nil, http.StatusBadRequest, "Invalid action format", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakePort{err: tt.portErr}
			rw := postForm(callback.NewHandler(port, discardLogger()), "/actions", plainPayload(tt.actionID, tt.value), nil)

			if rw.Code != tt.wantCode || !strings.Contains(rw.Body.String(), tt.wantBody) {
				t.Errorf("status = %d, body %q, want %d %q", rw.Code, rw.Body.String(), tt.wantCode, tt.wantBody)
			}
			got := port.dispatched()
			if !tt.wantDispatch {
				if len(got) != 0 {
					t.Errorf("dispatched = %+v, want none", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("dispatched %d requests", len(got))
			}
			if string(got[0].ActionID) != tt.actionID {
				t.Errorf("action = %q, want %q", got[0].ActionID, tt.actionID)
			}
			if got[0].ResponseURL != "https://hooks.slack.test/r/9" {
				t.Errorf("response url = %q", got[0].ResponseURL)
			}
		})
	}
}

func TestHandler_ActionIDPreferredOverName(t *testing.T) {
	port := &fakePort{}
	payload := `{"actions":[{"action_id":"acknowledge","name":"fix_interface","value":"sw1|Gi0/1"}]}`

	rw := postForm(callback.NewHandler(port, discardLogger()), "/actions", payload, nil)

	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rw.Code, rw.Body.String())
	}
	if got := port.dispatched(); len(got) != 1 || got[0].ActionID != model.ActionAcknowledge {
		t.Errorf("dispatched = %+v", got)
	}
}

// recordingNotifier captures follow-ups sent by the controller.
type recordingNotifier struct {
	mu        sync.Mutex
	followUps []outbound.FollowUp
}

func (n *recordingNotifier) NotifyInterface(context.Context, outbound.InterfaceNotification) error {
	return nil
}

func (n *recordingNotifier) NotifyError(context.Context, outbound.ErrorNotification) error {
	return nil
}

func (n *recordingNotifier) Respond(_ context.Context, f outbound.FollowUp) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.followUps = append(n.followUps, f)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.followUps)
}

func TestHandler_WithController(t *testing.T) {
	tests := []struct {
		name          string
		actionID      string
		value         string
		wantCode      int
		wantFollowUps int
	}{
		{"acknowledge", "acknowledge", "sw1|Gi0/1", http.StatusOK, 1},
		{"unknown action", "noop", "sw1|Gi0/1", http.StatusBadRequest, 0},
		{"bad token", "fix_interface", "devicex-interface", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			controller := service.NewController(
				service.NewComposer("https://callbacks.example.net"),
				service.Dependencies{Notifier: notifier},
				service.ControllerConfig{DevicePort: 22},
				discardLogger(),
			)
			rw := postForm(callback.NewHandler(controller, discardLogger()), "/actions", plainPayload(tt.actionID, tt.value), nil)

			if rw.Code != tt.wantCode {
				t.Errorf("status = %d, want %d, body %q", rw.Code, tt.wantCode, rw.Body.String())
			}
			if got := notifier.count(); got != tt.wantFollowUps {
				t.Errorf("follow-ups = %d, want %d", got, tt.wantFollowUps)
			}
		})
	}
}

func newServer(port *fakePort, verify middleware.VerifyConfig) *callback.Server {
	logger := discardLogger()
	return callback.NewServer(callback.ServerConfig{RateLimit: 100, Verify: verify}, callback.NewHandler(port, logger), logger)
}

func TestServer_Routes(t *testing.T) {
	port := &fakePort{}
	h := newServer(port, middleware.VerifyConfig{}).SetupRoutes()

	for _, path := range []string{"/actions", "/slack/actions"} {
		rw := postForm(h, path, blockPayload("acknowledge", "sw1|Gi0/1"), nil)
		if rw.Code != http.StatusOK {
			t.Errorf("POST %s status = %d", path, rw.Code)
		}
		if rw.Header().Get(middleware.RequestIDHeader) == "" {
			t.Errorf("POST %s missing request id", path)
		}
		if rw.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("POST %s missing security headers", path)
		}
	}

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rw.Code != http.StatusOK || !strings.Contains(rw.Body.String(), `"ok"`) {
		t.Errorf("health status = %d, body %q", rw.Code, rw.Body.String())
	}

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/actions", nil))
	if rw.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /actions status = %d, want 405", rw.Code)
	}
}

func TestServer_VerificationToken(t *testing.T) {
	port := &fakePort{}
	h := newServer(port, middleware.VerifyConfig{VerifyToken: "s3cret"}).SetupRoutes()

	bad := http.Header{middleware.VerificationTokenHeader: {"wrong"}}
	if rw := postForm(h, "/actions", blockPayload("acknowledge", "sw1|Gi0/1"), bad); rw.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rw.Code)
	}
	if len(port.dispatched()) != 0 {
		t.Fatal("unverified request dispatched")
	}

	// blockPayload carries the right token in its body.
	if rw := postForm(h, "/actions", blockPayload("acknowledge", "sw1|Gi0/1"), nil); rw.Code != http.StatusOK {
		t.Errorf("payload token status = %d, want 200", rw.Code)
	}
}

func TestServer_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := newServer(&fakePort{}, middleware.VerifyConfig{})

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	healthURL := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(healthURL)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
