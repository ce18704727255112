// Package metrics exposes prometheus collectors for the workbench API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors updated by the handlers.
type Metrics struct {
	Logins         *prometheus.CounterVec
	Queries        *prometheus.CounterVec
	RecordsFetched prometheus.Counter
	PageFetches    prometheus.Counter
	QueryDuration  prometheus.Histogram

	reg *prometheus.Registry
}

// New registers the workbench collectors with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workbench",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workbench",
			Name:      "queries_total",
			Help:      "Query runs by result.",
		}, []string{"result"}),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "workbench",
			Name:      "records_fetched_total",
			Help:      "Records returned to clients.",
		}),
		PageFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "workbench",
			Name:      "page_fetches_total",
			Help:      "Upstream pages fetched, first pages included.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "workbench",
			Name:      "query_duration_seconds",
			Help:      "Wall time of complete query runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		reg: reg,
	}
	reg.MustRegister(m.Logins, m.Queries, m.RecordsFetched, m.PageFetches, m.QueryDuration)

	// Label series are only exported once created.
	for _, result := range []string{"success", "failure"} {
		m.Logins.WithLabelValues(result)
	}
	for _, result := range []string{"success", "error"} {
		m.Queries.WithLabelValues(result)
	}
	return m
}

// RegisterSessionGauge exposes the stored session count.
func (m *Metrics) RegisterSessionGauge(count func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "workbench",
		Name:      "sessions",
		Help:      "Stored sessions.",
	}, count))
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
