package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jonny/ifremediator/internal/config"
	"github.com/jonny/ifremediator/internal/domain/model"
)

type stubSource struct {
	raw model.RawEvent
	err error
}

func (s stubSource) Load(context.Context) (model.RawEvent, error) { return s.raw, s.err }

type stubEventPort struct {
	got []model.RawEvent
	err error
}

func (p *stubEventPort) HandleEvent(_ context.Context, raw model.RawEvent) error {
	p.got = append(p.got, raw)
	return p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateMode(t *testing.T) {
	for _, m := range []string{modeAll, modeEvent, modeServe} {
		if err := validateMode(m); err != nil {
			t.Errorf("validateMode(%q) = %v", m, err)
		}
	}
	if err := validateMode("daemon"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestBuildLogger_Level(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for level, want := range tests {
		logger := buildLogger(config.LoggingConfig{Level: level, Format: "text", Output: "stderr"})
		if !logger.Enabled(context.Background(), want) {
			t.Errorf("level %q: %v not enabled", level, want)
		}
		if want > slog.LevelDebug && logger.Enabled(context.Background(), want-4) {
			t.Errorf("level %q: level below %v enabled", level, want)
		}
	}
}

func TestRunEvent(t *testing.T) {
	raw := model.RawEvent{Host: "sw1", Message: "Interface Gi0/1, changed state to down"}
	port := &stubEventPort{}
	if err := runEvent(context.Background(), stubSource{raw: raw}, port, discardLogger()); err != nil {
		t.Fatalf("runEvent: %v", err)
	}
	if len(port.got) != 1 || port.got[0].Host != "sw1" {
		t.Errorf("dispatched = %+v", port.got)
	}
}

func TestRunEvent_Errors(t *testing.T) {
	loadErr := errors.New("EVENT_HOST is empty")
	port := &stubEventPort{}
	if err := runEvent(context.Background(), stubSource{err: loadErr}, port, discardLogger()); !errors.Is(err, loadErr) {
		t.Errorf("err = %v, want load error", err)
	}
	if len(port.got) != 0 {
		t.Error("event dispatched after load failure")
	}

	handleErr := errors.New("unparsed")
	port = &stubEventPort{err: handleErr}
	if err := runEvent(context.Background(), stubSource{raw: model.RawEvent{Host: "sw1"}}, port, discardLogger()); !errors.Is(err, handleErr) {
		t.Errorf("err = %v, want handle error", err)
	}
}
