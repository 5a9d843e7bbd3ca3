package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	// OutcomeSkipped labels remediations refused by the interface guard.
	OutcomeSkipped = "skipped"
)

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ifremediator",
			Name:      "events_total",
			Help:      "Interface events handled, partitioned by parsed state.",
		},
		[]string{"state"},
	)

	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ifremediator",
			Name:      "decisions_total",
			Help:      "Remediation decisions taken for interface events.",
		},
		[]string{"decision"},
	)

	remediationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ifremediator",
			Name:      "remediations_total",
			Help:      "Interface enable attempts, partitioned by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ifremediator",
			Name:      "callbacks_total",
			Help:      "Interactive callbacks received, partitioned by action and HTTP status.",
		},
		[]string{"action", "status"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ifremediator",
			Name:      "notifications_total",
			Help:      "Chat notifications attempted, partitioned by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	deviceConnectFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ifremediator",
			Name:      "device_connect_failures_total",
			Help:      "Failed device connections, partitioned by fault kind.",
		},
		[]string{"kind"},
	)
)

// Register attaches the collectors to reg. Collectors that are already
// registered are skipped.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		eventsTotal,
		decisionsTotal,
		remediationsTotal,
		callbacksTotal,
		notificationsTotal,
		deviceConnectFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveEvent(state string) {
	eventsTotal.WithLabelValues(state).Inc()
}

func ObserveDecision(decision string) {
	decisionsTotal.WithLabelValues(decision).Inc()
}

// ObserveRemediation records one enable attempt. trigger is "auto" or "callback".
func ObserveRemediation(trigger, outcome string) {
	remediationsTotal.WithLabelValues(trigger, outcome).Inc()
}

func ObserveCallback(action string, status int) {
	callbacksTotal.WithLabelValues(action, statusLabel(status)).Inc()
}

// ObserveNotification records a delivery attempt; a nil err counts as success.
func ObserveNotification(kind string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	notificationsTotal.WithLabelValues(kind, outcome).Inc()
}

func ObserveConnectFailure(kind string) {
	deviceConnectFailuresTotal.WithLabelValues(kind).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 200 && status < 300:
		return "2xx"
	default:
		return "other"
	}
}
