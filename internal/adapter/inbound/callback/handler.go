package callback

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/ifremediator/internal/adapter/inbound/callback/middleware"
	"github.com/jonny/ifremediator/internal/domain/model"
	"github.com/jonny/ifremediator/internal/domain/port/inbound"
	"github.com/jonny/ifremediator/internal/metrics"
	"github.com/jonny/ifremediator/pkg/apierror"
)

const noAction = "none"

// wireActions is the actions array as posted. slack-go only fills
// BlockAction.ActionID for elements that carry a block_id, so the id is read
// from the raw payload instead.
type wireActions struct {
	Actions []struct {
		ActionID string `json:"action_id"`
		Name     string `json:"name"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// Handler turns a Slack interaction payload into a CallbackRequest and
// dispatches it. Authentication happens in middleware before it runs.
type Handler struct {
	port   inbound.CallbackPort
	logger *slog.Logger
}

func NewHandler(port inbound.CallbackPort, logger *slog.Logger) *Handler {
	return &Handler{port: port, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(slog.String("request_id", middleware.RequestIDFromContext(ctx)))

	payload := []byte(r.PostFormValue("payload"))
	var cb slackapi.InteractionCallback
	var wire wireActions
	if err := json.Unmarshal(payload, &cb); err != nil {
		h.fail(w, noAction, apierror.WithDetail(http.StatusBadRequest, "Invalid payload format", err.Error()), logger)
		return
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		h.fail(w, noAction, apierror.WithDetail(http.StatusBadRequest, "Invalid payload format", err.Error()), logger)
		return
	}

	actionID, value, ok := firstAction(wire)
	if !ok {
		h.fail(w, noAction, apierror.BadRequest("No action found"), logger)
		return
	}

	token, err := model.DecodeActionToken(value)
	if err != nil {
		h.fail(w, actionID, apierror.WithDetail(http.StatusBadRequest, "Invalid action format", err.Error()), logger)
		return
	}

	req := model.CallbackRequest{
		ActionID:    model.CallbackActionID(actionID),
		Token:       token,
		ResponseURL: cb.ResponseURL,
		UserID:      cb.User.ID,
		UserName:    cb.User.Name,
	}
	err = h.port.HandleCallback(ctx, req)
	switch {
	case errors.Is(err, inbound.ErrUnknownAction):
		h.fail(w, actionID, apierror.WithDetail(http.StatusBadRequest, "Unknown action", err.Error()), logger)
		return
	case err != nil:
		h.fail(w, actionID, apierror.WithDetail(http.StatusInternalServerError, "Configuration error", err.Error()), logger)
		return
	}

	metrics.ObserveCallback(actionID, http.StatusOK)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, acceptedText(req.ActionID))
}

func (h *Handler) fail(w http.ResponseWriter, actionID string, e *apierror.Error, logger *slog.Logger) {
	metrics.ObserveCallback(actionID, e.Code)
	logger.Warn("callback rejected",
		slog.String("action_id", actionID),
		slog.Int("status", e.Code),
		slog.String("reason", e.Message),
		slog.String("detail", e.Detail),
	)
	e.Write(w)
}

// firstAction returns the id and value of the first clicked element. Buttons
// carry an action_id; legacy attachment buttons only a name.
func firstAction(wire wireActions) (string, string, bool) {
	if len(wire.Actions) == 0 {
		return "", "", false
	}
	a := wire.Actions[0]
	if a.ActionID != "" {
		return a.ActionID, a.Value, true
	}
	return a.Name, a.Value, true
}

func acceptedText(id model.CallbackActionID) string {
	if id == model.ActionAcknowledge {
		return "Acknowledged"
	}
	return "Processing"
}

// HealthHandler reports liveness of the callback listener.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
