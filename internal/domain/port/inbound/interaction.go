package inbound

import (
	"context"
	"errors"

	"github.com/jonny/ifremediator/internal/domain/model"
)

// EventPort handles one interface event per process run.
type EventPort interface {
	HandleEvent(ctx context.Context, raw model.RawEvent) error
}

// Callback dispatch failures. Inbound adapters map these to response codes.
var (
	ErrUnknownAction     = errors.New("unknown callback action")
	ErrRemediationFailed = errors.New("interface remediation failed")
)

// CallbackPort handles button clicks from interactive notifications.
type CallbackPort interface {
	HandleCallback(ctx context.Context, req model.CallbackRequest) error
}

// EventSource produces the raw event that triggered this run.
type EventSource interface {
	Load(ctx context.Context) (model.RawEvent, error)
}
