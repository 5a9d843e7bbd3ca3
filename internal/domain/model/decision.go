package model

type RemediationDecision string

const (
	DecisionAutoRemediate    RemediationDecision = "auto_remediate"
	DecisionOfferInteractive RemediationDecision = "offer_interactive"
	DecisionNotifyOnly       RemediationDecision = "notify_only"
)

// RemediationPolicy holds the two switches that drive Decide.
type RemediationPolicy struct {
	UseInteractiveButtons bool
	BringInterfaceUp      bool
}

// Decide maps an interface state and policy to exactly one decision.
// An UP transition is only ever a recovery notice; bringInterfaceUp is ignored
// whenever buttons are in use.
func Decide(state InterfaceState, p RemediationPolicy) RemediationDecision {
	if state != InterfaceStateDown {
		return DecisionNotifyOnly
	}
	switch {
	case p.UseInteractiveButtons:
		return DecisionOfferInteractive
	case p.BringInterfaceUp:
		return DecisionAutoRemediate
	default:
		return DecisionNotifyOnly
	}
}
