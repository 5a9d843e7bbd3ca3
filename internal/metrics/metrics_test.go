package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObserveNotification(t *testing.T) {
	before := testutil.ToFloat64(notificationsTotal.WithLabelValues("interface", OutcomeError))
	ObserveNotification("interface", errors.New("boom"))
	after := testutil.ToFloat64(notificationsTotal.WithLabelValues("interface", OutcomeError))
	if after != before+1 {
		t.Errorf("expected error counter to grow by 1, got %v -> %v", before, after)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		400: "4xx",
		401: "4xx",
		500: "5xx",
		302: "other",
	}
	for status, want := range tests {
		if got := statusLabel(status); got != want {
			t.Errorf("statusLabel(%d) = %s, want %s", status, got, want)
		}
	}
}
