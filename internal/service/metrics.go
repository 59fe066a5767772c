package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the service-level instruments.
type Metrics struct {
	Analyses  *prometheus.CounterVec
	Failures  prometheus.Counter
	Flags     *prometheus.CounterVec
	Duration  prometheus.Histogram
	CacheHits prometheus.Counter
}

// NewMetrics registers the service instruments on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veridoc",
			Name:      "analyses_total",
			Help:      "Completed analyses by document format and risk level.",
		}, []string{"format", "level"}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veridoc",
			Name:      "analysis_failures_total",
			Help:      "Analyses that did not produce a record.",
		}),
		Flags: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veridoc",
			Name:      "flags_total",
			Help:      "Anomaly flags raised, by kind and severity.",
		}, []string{"kind", "severity"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veridoc",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of a single document analysis.",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "veridoc",
			Name:      "cache_hits_total",
			Help:      "Analyses served from the digest cache.",
		}),
	}
}
