// Package metrics provides Prometheus metrics for the EthernetICMP tools.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ethping"

// Metrics contains all Prometheus metrics for the ping engine.
type Metrics struct {
	// Session metrics
	SessionsActive prometheus.Gauge
	PingsTotal     prometheus.Counter
	PingsByStatus  *prometheus.CounterVec

	// Attempt metrics
	AttemptsTotal    prometheus.Counter
	RetransmitsTotal prometheus.Counter
	ForeignDatagrams prometheus.Counter

	// Latency
	RTTSeconds prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a Metrics instance registered with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of ping sessions currently in flight",
		}),
		PingsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_total",
			Help:      "Total ping sessions started",
		}),
		PingsByStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_by_status_total",
			Help:      "Total completed ping sessions by terminal status",
		}, []string{"status"}),
		AttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total echo request attempts transmitted",
		}),
		RetransmitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retransmits_total",
			Help:      "Total echo request retransmissions after a timed-out or bad attempt",
		}),
		ForeignDatagrams: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "foreign_datagrams_total",
			Help:      "Total inbound datagrams discarded for identifier or sequence mismatch",
		}),
		RTTSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rtt_seconds",
			Help:      "Histogram of echo round-trip time in seconds",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
}

// RecordSession records the terminal outcome of one ping session.
func (m *Metrics) RecordSession(status string, attempts, foreign int) {
	m.PingsByStatus.WithLabelValues(status).Inc()
	m.AttemptsTotal.Add(float64(attempts))
	if attempts > 1 {
		m.RetransmitsTotal.Add(float64(attempts - 1))
	}
	if foreign > 0 {
		m.ForeignDatagrams.Add(float64(foreign))
	}
}
