package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/lumenpos/finengine/internal/domain"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration        *prometheus.HistogramVec
	transactionsAppended   prometheus.Counter
	reconciliationOutcomes *prometheus.CounterVec
	reportsGenerated       *prometheus.CounterVec
	cacheHits              *prometheus.CounterVec
	cacheMisses            *prometheus.CounterVec
	externalErrors         *prometheus.CounterVec
	lockConflicts          *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// engine metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finengine_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transactionsAppended: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finengine_transactions_appended_total",
				Help: "Total transactions appended to the ledger.",
			},
		),
		reconciliationOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_reconciliations_total",
				Help: "Total bank reconciliation runs by outcome.",
			},
			[]string{"status"},
		),
		reportsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_reports_generated_total",
				Help: "Total reports generated by kind.",
			},
			[]string{"report"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		lockConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_lock_conflicts_total",
				Help: "Total per-account lock acquisition failures.",
			},
			[]string{"operation"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrTransactionAppended increments the appended-transaction counter.
func (m *Metrics) IncrTransactionAppended() {
	m.transactionsAppended.Inc()
}

// IncrReconciliation increments the reconciliation counter for a status.
func (m *Metrics) IncrReconciliation(status string) {
	m.reconciliationOutcomes.WithLabelValues(status).Inc()
}

// IncrReportGenerated increments the report counter for a report kind.
func (m *Metrics) IncrReportGenerated(report string) {
	m.reportsGenerated.WithLabelValues(report).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrLockConflict increments the lock conflict counter.
func (m *Metrics) IncrLockConflict(operation string) {
	m.lockConflicts.WithLabelValues(operation).Inc()
}

// GetEngineSnapshot returns a snapshot of engine counters suitable for
// the GET /v1/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	appended := getCounter(m.transactionsAppended)
	completed := getCounterValue(m.reconciliationOutcomes, domain.ReconciliationCompleted)
	flagged := getCounterValue(m.reconciliationOutcomes, domain.ReconciliationDiscrepancy)
	reports := getCounterValue(m.reportsGenerated, "profit_loss") +
		getCounterValue(m.reportsGenerated, "financial_summary") +
		getCounterValue(m.reportsGenerated, "tax") +
		getCounterValue(m.reportsGenerated, "cash_flow") +
		getCounterValue(m.reportsGenerated, "end_of_day")
	hits := getCounterValue(m.cacheHits, "reports")
	misses := getCounterValue(m.cacheMisses, "reports")

	discrepancyRate := float64(0)
	if completed+flagged > 0 {
		discrepancyRate = flagged / (completed + flagged)
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.EngineMetrics{
		TransactionsAppended:     int64(appended),
		ReconciliationsCompleted: int64(completed),
		ReconciliationsFlagged:   int64(flagged),
		DiscrepancyRate:          discrepancyRate,
		ReportsGenerated:         int64(reports),
		CacheHitRate:             cacheHitRate,
		Period:                   "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return getCounter(cv.WithLabelValues(label))
}

func getCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
