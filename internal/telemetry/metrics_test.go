package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWalkMetrics(t *testing.T) {
	t.Parallel()

	t.Run("nil registerer yields no-op metrics", func(t *testing.T) {
		t.Parallel()

		m := NewWalkMetrics(nil)
		require.Nil(t, m)

		// All record methods are safe on the nil receiver.
		m.RecordOutcome("ok")
		m.RecordCacheHit()
		m.RecordRetry()
		m.RecordFetchedBytes(42)
		m.RecordSkippedEntry()
		m.ObserveDocumentDuration(0.1)
	})

	t.Run("instruments register and count", func(t *testing.T) {
		t.Parallel()

		registry := prometheus.NewRegistry()
		m := NewWalkMetrics(registry)
		require.NotNil(t, m)

		m.RecordOutcome("ok")
		m.RecordOutcome("ok")
		m.RecordOutcome("fetch_failed")
		m.RecordCacheHit()
		m.RecordRetry()
		m.RecordFetchedBytes(1024)
		m.RecordSkippedEntry()
		m.ObserveDocumentDuration(0.2)

		assert.Equal(t, float64(2), testutil.ToFloat64(m.outcomesTotal.WithLabelValues("ok")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomesTotal.WithLabelValues("fetch_failed")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheHitsTotal))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.retriesTotal))
		assert.Equal(t, float64(1024), testutil.ToFloat64(m.fetchedBytes))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.skippedEntries))

		count, err := testutil.GatherAndCount(registry,
			"csaf_walker_outcomes_total",
			"csaf_walker_cache_hits_total",
			"csaf_walker_fetch_retries_total",
			"csaf_walker_fetched_bytes_total",
			"csaf_walker_skipped_entries_total",
			"csaf_walker_document_duration_seconds",
		)
		require.NoError(t, err)
		assert.Equal(t, 7, count, "two outcome label values plus five single-series instruments")
	})
}
