// Package metrics holds the Prometheus instruments of the carbon ledger and
// small helpers that record into them. Instruments register on the default
// registry; `carbonledger serve` exposes them on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

//nolint:gochecknoglobals // Prometheus instruments are process-wide.
var (
	// Calculation metrics
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbonledger_calculations_total",
			Help: "Emission calculations by scope type and outcome",
		},
		[]string{"scope", "outcome"},
	)

	CalculationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carbonledger_calculation_duration_seconds",
			Help:    "Duration of a single emission calculation including store access",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scope"},
	)

	// Stream metrics
	StreamRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbonledger_stream_rebuilds_total",
			Help: "Cumulative stream rebuilds by outcome",
		},
		[]string{"outcome"},
	)

	StreamRebuildRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carbonledger_stream_rebuild_records",
			Help:    "Number of records walked per stream rebuild",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// Summary metrics
	SummaryCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbonledger_summary_calculations_total",
			Help: "Summary recalculations by period type and outcome",
		},
		[]string{"period_type", "outcome"},
	)

	SummaryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carbonledger_summary_duration_seconds",
			Help:    "Duration of a summary recalculation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"period_type"},
	)

	SummaryEntryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carbonledger_summary_entry_errors_total",
			Help: "Activity records skipped during aggregation",
		},
	)

	// Batch metrics
	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbonledger_batch_items_total",
			Help: "Batch recalculation items by outcome",
		},
		[]string{"outcome"},
	)

	// Job queue metrics
	JobsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carbonledger_jobs_published_total",
			Help: "Summary refresh jobs published",
		},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbonledger_jobs_processed_total",
			Help: "Summary refresh jobs handled by outcome",
		},
		[]string{"outcome"},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carbonledger_notifications_total",
			Help: "Notification events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "carbonledger_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Cache metrics
	FlowchartCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carbonledger_flowchart_cache_hits_total",
			Help: "Flowchart cache hits",
		},
	)

	FlowchartCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carbonledger_flowchart_cache_misses_total",
			Help: "Flowchart cache misses",
		},
	)
)

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// RecordCalculation records one calculation. An unsuccessful result that
// did not error is counted as empty.
func RecordCalculation(scope string, duration time.Duration, success bool, err error) {
	o := outcome(err)
	if err == nil && !success {
		o = OutcomeEmpty
	}
	CalculationsTotal.WithLabelValues(scope, o).Inc()
	CalculationDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

// RecordStreamRebuild records one stream rebuild.
func RecordStreamRebuild(records int, err error) {
	StreamRebuildsTotal.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		StreamRebuildRecords.Observe(float64(records))
	}
}

// RecordSummary records one summary recalculation.
func RecordSummary(periodType string, duration time.Duration, entryErrors int, err error) {
	SummaryCalculationsTotal.WithLabelValues(periodType, outcome(err)).Inc()
	SummaryDuration.WithLabelValues(periodType).Observe(duration.Seconds())
	SummaryEntryErrors.Add(float64(entryErrors))
}

// RecordBatch records the item outcomes of a batch run.
func RecordBatch(saved, failed int) {
	BatchItemsTotal.WithLabelValues(OutcomeSuccess).Add(float64(saved))
	BatchItemsTotal.WithLabelValues(OutcomeFailure).Add(float64(failed))
}

// RecordJob records one handled job.
func RecordJob(err error) {
	JobsProcessedTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordJobPublished counts one queued job.
func RecordJobPublished() {
	JobsPublishedTotal.Inc()
}

// RecordNotification records one published event.
func RecordNotification(eventType string, err error) {
	NotificationsTotal.WithLabelValues(eventType, outcome(err)).Inc()
}

// RecordCacheLookup records a flowchart cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		FlowchartCacheHits.Inc()
		return
	}
	FlowchartCacheMisses.Inc()
}

// Handler returns the /metrics HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
