// Package metrics provides Prometheus instrumentation for the resolver and
// its cache. A nil *Metrics is a valid no-op receiver so the core never
// requires metrics to be wired.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cache read outcomes
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultNegative = "negative"
)

// Upstream request outcomes
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds the counters the resolver reports into
type Metrics struct {
	cacheResults     *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
}

// New creates and registers the resolver metrics on the given registerer
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omakase_cache_results_total",
			Help: "Cache read outcomes by namespace.",
		}, []string{"namespace", "result"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omakase_upstream_requests_total",
			Help: "Upstream API requests by API and outcome.",
		}, []string{"api", "outcome"}),
	}
	reg.MustRegister(m.cacheResults, m.upstreamRequests)
	return m
}

// CacheResult records the outcome of one cache read in a namespace
func (m *Metrics) CacheResult(namespace, result string) {
	if m == nil {
		return
	}
	m.cacheResults.WithLabelValues(namespace, result).Inc()
}

// UpstreamRequest records one upstream API call and its outcome
func (m *Metrics) UpstreamRequest(api, outcome string) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(api, outcome).Inc()
}
