package model

type CallbackActionID string

const (
	ActionFixInterface CallbackActionID = "fix_interface"
	ActionAcknowledge  CallbackActionID = "acknowledge"
)

// Known reports whether id names an action the controller can dispatch.
func (id CallbackActionID) Known() bool {
	switch id {
	case ActionFixInterface, ActionAcknowledge:
		return true
	default:
		return false
	}
}

// CallbackRequest is one button click, alive only for the request that carried it.
type CallbackRequest struct {
	ActionID    CallbackActionID
	Token       ActionToken
	ResponseURL string
	UserID      string
	UserName    string
}

// Actor returns a display name for whoever clicked, falling back to the user ID.
func (r CallbackRequest) Actor() string {
	if r.UserName != "" {
		return r.UserName
	}
	return r.UserID
}
