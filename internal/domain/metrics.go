package domain

// EngineMetrics is the snapshot returned by GET /v1/metrics/engine.
type EngineMetrics struct {
	TransactionsAppended     int64   `json:"transactions_appended"`
	ReconciliationsCompleted int64   `json:"reconciliations_completed"`
	ReconciliationsFlagged   int64   `json:"reconciliations_flagged"`
	DiscrepancyRate          float64 `json:"discrepancy_rate"`
	ReportsGenerated         int64   `json:"reports_generated"`
	CacheHitRate             float64 `json:"cache_hit_rate"`
	Period                   string  `json:"period"`
}
