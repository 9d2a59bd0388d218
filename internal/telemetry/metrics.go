// Package telemetry provides Prometheus instrumentation for walk runs.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WalkMetrics holds the Prometheus instruments for a walker.
type WalkMetrics struct {
	outcomesTotal   *prometheus.CounterVec
	cacheHitsTotal  prometheus.Counter
	retriesTotal    prometheus.Counter
	fetchedBytes    prometheus.Counter
	skippedEntries  prometheus.Counter
	documentSeconds prometheus.Histogram
}

// NewWalkMetrics creates a WalkMetrics instance registered on the given
// registerer. If registerer is nil, it returns nil (no-op metrics).
func NewWalkMetrics(registerer prometheus.Registerer) *WalkMetrics {
	if registerer == nil {
		return nil
	}

	m := &WalkMetrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "csaf_walker_outcomes_total",
			Help: "Number of walk outcomes emitted, by status",
		}, []string{"status"}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csaf_walker_cache_hits_total",
			Help: "Number of documents answered with 304 Not Modified",
		}),
		retriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csaf_walker_fetch_retries_total",
			Help: "Number of transient fetch failures that were retried",
		}),
		fetchedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csaf_walker_fetched_bytes_total",
			Help: "Total document bytes retrieved",
		}),
		skippedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "csaf_walker_skipped_entries_total",
			Help: "Number of malformed index entries skipped during discovery",
		}),
		documentSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "csaf_walker_document_duration_seconds",
			Help:    "Duration of one document's full pipeline in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	registerer.MustRegister(
		m.outcomesTotal, m.cacheHitsTotal, m.retriesTotal,
		m.fetchedBytes, m.skippedEntries, m.documentSeconds,
	)
	return m
}

// RecordOutcome counts one emitted outcome by status.
func (m *WalkMetrics) RecordOutcome(status string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(status).Inc()
}

// RecordCacheHit counts one 304 answer.
func (m *WalkMetrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

// RecordRetry counts one retried transient fetch failure.
func (m *WalkMetrics) RecordRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

// RecordFetchedBytes counts retrieved document bytes.
func (m *WalkMetrics) RecordFetchedBytes(n int) {
	if m == nil {
		return
	}
	m.fetchedBytes.Add(float64(n))
}

// RecordSkippedEntry counts one malformed index entry.
func (m *WalkMetrics) RecordSkippedEntry() {
	if m == nil {
		return
	}
	m.skippedEntries.Inc()
}

// ObserveDocumentDuration records the duration of one document pipeline.
func (m *WalkMetrics) ObserveDocumentDuration(seconds float64) {
	if m == nil {
		return
	}
	m.documentSeconds.Observe(seconds)
}
