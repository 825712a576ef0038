package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Settlement("completed")
	m.Settlement("completed")
	m.Settlement("replay")
	m.DispatchFailed("lock")
	m.WebhookRejected("invalid_signature")
	m.ObserveVerify("flutterwave", time.Now())

	if got := testutil.ToFloat64(m.settlements.WithLabelValues("completed")); got != 2 {
		t.Fatalf("completed settlements = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.dispatchFailures.WithLabelValues("lock")); got != 1 {
		t.Fatalf("dispatch failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.webhookRejected.WithLabelValues("invalid_signature")); got != 1 {
		t.Fatalf("webhook rejections = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Settlement("completed")
	m.Revocation("revoked")
	m.Scheduled()
	m.ScheduleFailed()
	if m.Handler() == nil {
		t.Fatal("nil metrics must still serve a handler")
	}
}
