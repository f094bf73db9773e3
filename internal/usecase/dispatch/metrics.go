package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	lookupHit    = "hit"
	lookupMiss   = "miss"
	lookupError  = "error"
	lookupBypass = "bypass"
)

// Metrics instruments the dispatcher. A nil *Metrics records nothing.
type Metrics struct {
	lookups       *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yfmcp",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by operation and result (hit, miss, error, bypass).",
		}, []string{"operation", "result"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yfmcp",
			Name:      "fetch_errors_total",
			Help:      "Failed upstream fetches by operation and error kind.",
		}, []string{"operation", "kind"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yfmcp",
			Name:      "cache_store_errors_total",
			Help:      "Failed cache writes by operation.",
		}, []string{"operation"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "yfmcp",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(m.lookups, m.fetchErrors, m.storeErrors, m.fetchDuration)
	}
	return m
}

func (m *Metrics) lookup(operation string, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) fetchFailed(operation string, kind string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) storeFailed(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) observeFetch(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(operation).Observe(seconds)
}
