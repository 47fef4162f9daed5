// Package metrics exposes scan counters and latency as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/urlscan/internal/model"
)

// Metrics holds the collectors of one server instance.
// It implements scan.Recorder.
type Metrics struct {
	scans              *prometheus.CounterVec
	classifierFailures prometheus.Counter
	cacheHits          *prometheus.CounterVec
	scanDuration       prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry() to stay isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "urlscan_scans_total",
			Help: "Total number of URLs scanned, by verdict",
		}, []string{"verdict"}),
		classifierFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "urlscan_classifier_failures_total",
			Help: "Total number of classifier predictions that failed and fell back to heuristics",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "urlscan_cache_hits_total",
			Help: "Total number of result cache lookups, by result",
		}, []string{"result"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "urlscan_scan_duration_seconds",
			Help:    "Time spent scoring a URL",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
	}
	reg.MustRegister(m.scans, m.classifierFailures, m.cacheHits, m.scanDuration)
	return m
}

// ObserveScan records a completed scan.
func (m *Metrics) ObserveScan(verdict model.Verdict, elapsed time.Duration) {
	m.scans.WithLabelValues(verdict.String()).Inc()
	m.scanDuration.Observe(elapsed.Seconds())
}

// ClassifierFailed records a swallowed classifier error.
func (m *Metrics) ClassifierFailed() {
	m.classifierFailures.Inc()
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}
