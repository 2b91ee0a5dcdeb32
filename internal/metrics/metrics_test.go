package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	// Create a new registry for isolated testing
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	if m == nil {
		t.Fatal("NewMetricsWithRegistry returned nil")
	}

	// Verify metrics are registered
	if m.SessionsActive == nil {
		t.Error("SessionsActive metric is nil")
	}
	if m.PingsTotal == nil {
		t.Error("PingsTotal metric is nil")
	}
	if m.RTTSeconds == nil {
		t.Error("RTTSeconds metric is nil")
	}
}

func TestRecordSession(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	// A ping that succeeded on the third attempt with one foreign
	// datagram observed along the way.
	m.RecordSession("SUCCESS", 3, 1)
	// A ping that exhausted a single attempt.
	m.RecordSession("NO_RESPONSE", 1, 0)

	attempts := testutil.ToFloat64(m.AttemptsTotal)
	if attempts != 4 {
		t.Errorf("AttemptsTotal = %v, want 4", attempts)
	}

	// Only attempts beyond the first count as retransmits.
	retransmits := testutil.ToFloat64(m.RetransmitsTotal)
	if retransmits != 2 {
		t.Errorf("RetransmitsTotal = %v, want 2", retransmits)
	}

	foreign := testutil.ToFloat64(m.ForeignDatagrams)
	if foreign != 1 {
		t.Errorf("ForeignDatagrams = %v, want 1", foreign)
	}

	success := testutil.ToFloat64(m.PingsByStatus.WithLabelValues("SUCCESS"))
	if success != 1 {
		t.Errorf("PingsByStatus[SUCCESS] = %v, want 1", success)
	}

	noResponse := testutil.ToFloat64(m.PingsByStatus.WithLabelValues("NO_RESPONSE"))
	if noResponse != 1 {
		t.Errorf("PingsByStatus[NO_RESPONSE] = %v, want 1", noResponse)
	}
}

func TestSessionsActiveGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.SessionsActive.Inc()
	m.SessionsActive.Inc()
	m.SessionsActive.Dec()

	active := testutil.ToFloat64(m.SessionsActive)
	if active != 1 {
		t.Errorf("SessionsActive = %v, want 1", active)
	}
}

func TestPingsTotal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.PingsTotal.Inc()
	m.PingsTotal.Inc()
	m.PingsTotal.Inc()

	total := testutil.ToFloat64(m.PingsTotal)
	if total != 3 {
		t.Errorf("PingsTotal = %v, want 3", total)
	}
}

func TestRTTSecondsObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RTTSeconds.Observe(0.010)
	m.RTTSeconds.Observe(0.025)
	m.RTTSeconds.Observe(0.250)

	count := testutil.CollectAndCount(m.RTTSeconds, "ethping_rtt_seconds")
	if count != 1 {
		t.Errorf("rtt_seconds series = %d, want 1", count)
	}
}

func TestDefaultMetrics(t *testing.T) {
	m1 := Default()
	m2 := Default()

	if m1 != m2 {
		t.Error("Default() should return same instance")
	}

	if m1 == nil {
		t.Error("Default() returned nil")
	}
}
