package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.IncSuccess("ledger-sweep")
	m.IncSuccess("ledger-sweep")
	m.IncFailure("ledger-sweep")
	m.ObserveDuration("ledger-sweep", 250*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("ledger-sweep")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("ledger-sweep")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestJobMetricsNilSafe(t *testing.T) {
	var m *JobMetrics
	m.IncSuccess("ledger-sweep")
	m.IncFailure("ledger-sweep")
	m.ObserveDuration("ledger-sweep", time.Second)

	empty := NewJobMetrics(nil)
	empty.IncSuccess("")
}
