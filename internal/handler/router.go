package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/infra/observability"
	"github.com/lumenpos/finengine/internal/service"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router needs.
type Services struct {
	Ledger         *service.LedgerService
	CashFlow       *service.CashFlowService
	Reconciliation *service.ReconciliationService
	EndOfDay       *service.EndOfDayService
	Reports        *service.ReportService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, jwtSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(OperatorIdentity(jwtSecret, logger))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Ledger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Ledger
		r.Post("/transactions", appendTransactionHandler(svcs.Ledger, logger))
		r.Get("/transactions", queryTransactionsHandler(svcs.Ledger, logger))
		r.Post("/transactions/reconcile", markReconciledHandler(svcs.Ledger, logger))

		// Accounts
		r.Get("/accounts", listAccountsHandler(svcs.Ledger, logger))
		r.Get("/accounts/{accountId}", getAccountHandler(svcs.Ledger, logger))
		r.Get("/accounts/{accountId}/reconciliations", listReconciliationsHandler(svcs.Reconciliation, logger))

		// Cash flow
		r.Get("/cashflow/statement", cashFlowStatementHandler(svcs.CashFlow, logger))

		// Bank reconciliation
		r.Post("/reconciliations", runReconciliationHandler(svcs.Reconciliation, logger))

		// End of day
		r.Post("/reports/end-of-day", generateEndOfDayHandler(svcs.EndOfDay, logger))
		r.Get("/reports/end-of-day", listEndOfDayHandler(svcs.EndOfDay, logger))
		r.Get("/reports/end-of-day/{reportId}", getEndOfDayHandler(svcs.EndOfDay, logger))
		r.Post("/reports/end-of-day/{reportId}/close", closeEndOfDayHandler(svcs.EndOfDay, logger))
		r.Post("/reports/end-of-day/{reportId}/reconcile", reconcileEndOfDayHandler(svcs.EndOfDay, logger))

		// Compiled reports
		r.Get("/reports/profit-loss", profitLossHandler(svcs.Reports, logger))
		r.Get("/reports/summary", financialSummaryHandler(svcs.Reports, logger))
		r.Get("/reports/tax", taxReportHandler(svcs.Reports, logger))

		// Engine metrics snapshot
		r.Get("/metrics/engine", engineMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(ledger *service.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "finengine", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		start := time.Now()
		_, err := ledger.Accounts(ctx)
		latency := time.Since(start).Milliseconds()
		status := "healthy"
		if err != nil {
			status = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name: "ledger-store", Status: status, LatencyMs: latency, LastChecked: now,
		})

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}

// ============================================================
// Ledger — /v1/transactions
// ============================================================

func appendTransactionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var txn domain.Transaction
		if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("account.id", txn.AccountID))

		stored, err := ledger.Append(ctx, &txn)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

func queryTransactionsHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		filter, err := filterFromQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		txns, err := ledger.Query(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": txns, "count": len(txns)})
	}
}

func filterFromQuery(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Type:          q.Get("type"),
		Category:      q.Get("category"),
		Status:        q.Get("status"),
		PaymentMethod: q.Get("payment_method"),
		AccountID:     q.Get("account_id"),
		Search:        q.Get("search"),
	}

	var err error
	if filter.DateFrom, err = parseDateParam(r, "date_from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = parseDateParam(r, "date_to"); err != nil {
		return filter, err
	}
	if filter.MinAmount, err = parseDecimalParam(r, "min_amount"); err != nil {
		return filter, err
	}
	if filter.MaxAmount, err = parseDecimalParam(r, "max_amount"); err != nil {
		return filter, err
	}
	if v := q.Get("reconciled"); v != "" {
		reconciled := v == "true" || v == "1"
		filter.Reconciled = &reconciled
	}
	return filter, nil
}

func markReconciledHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/reconcile")
		defer span.End()

		var req struct {
			IDs          []string `json:"ids"`
			ReconciledBy string   `json:"reconciled_by"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ReconciledBy == "" {
			req.ReconciledBy = OperatorFromContext(ctx)
		}

		count, err := ledger.Reconcile(ctx, req.IDs, req.ReconciledBy)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requested": len(req.IDs), "marked": count})
	}
}

// ============================================================
// Accounts
// ============================================================

func listAccountsHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()

		accounts, err := ledger.Accounts(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	}
}

func getAccountHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		account, err := ledger.Account(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

// ============================================================
// Cash flow
// ============================================================

func cashFlowStatementHandler(svc *service.CashFlowService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cashflow/statement")
		defer span.End()

		start, err := parseDateParam(r, "start_date")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		end, err := parseDateParam(r, "end_date")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if start == nil || end == nil {
			writeError(w, http.StatusBadRequest, "start_date and end_date are required")
			return
		}
		opening, err := parseDecimalParam(r, "opening_balance")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		req := domain.CashFlowRequest{
			StartDate: *start,
			EndDate:   *end,
			AccountID: r.URL.Query().Get("account_id"),
		}
		if opening != nil {
			req.OpeningBalance = *opening
		}

		stmt, err := svc.Statement(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stmt)
	}
}

// ============================================================
// Bank reconciliation
// ============================================================

func runReconciliationHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reconciliations")
		defer span.End()

		var req domain.ReconciliationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ReconciledBy == "" {
			req.ReconciledBy = OperatorFromContext(ctx)
		}
		span.SetAttributes(attribute.String("account.id", req.AccountID))

		rec, err := svc.Reconcile(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func listReconciliationsHandler(svc *service.ReconciliationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/reconciliations")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		recs, err := svc.List(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reconciliations": recs})
	}
}

// ============================================================
// End of day
// ============================================================

func generateEndOfDayHandler(svc *service.EndOfDayService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/end-of-day")
		defer span.End()

		var req domain.EndOfDayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CashierID == "" {
			req.CashierID = OperatorFromContext(ctx)
		}

		report, err := svc.Generate(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, report)
	}
}

func listEndOfDayHandler(svc *service.EndOfDayService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/end-of-day")
		defer span.End()

		from, err := parseDateParam(r, "date_from")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := parseDateParam(r, "date_to")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		reports, err := svc.List(ctx, from, to)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
	}
}

func getEndOfDayHandler(svc *service.EndOfDayService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/end-of-day/{reportId}")
		defer span.End()

		report, err := svc.Get(ctx, chi.URLParam(r, "reportId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func closeEndOfDayHandler(svc *service.EndOfDayService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/end-of-day/{reportId}/close")
		defer span.End()

		var req struct {
			ActualClosingBalance decimal.Decimal `json:"actual_closing_balance"`
			CashierID            string          `json:"cashier_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CashierID == "" {
			req.CashierID = OperatorFromContext(ctx)
		}

		report, err := svc.Close(ctx, chi.URLParam(r, "reportId"), req.ActualClosingBalance, req.CashierID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func reconcileEndOfDayHandler(svc *service.EndOfDayService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/end-of-day/{reportId}/reconcile")
		defer span.End()

		var req struct {
			ActualClosingBalance decimal.Decimal `json:"actual_closing_balance"`
			Notes                string          `json:"notes"`
			ReconciledBy         string          `json:"reconciled_by"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ReconciledBy == "" {
			req.ReconciledBy = OperatorFromContext(ctx)
		}

		report, err := svc.ReconcileReport(ctx, chi.URLParam(r, "reportId"), req.ActualClosingBalance, req.Notes, req.ReconciledBy)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ============================================================
// Compiled reports
// ============================================================

func periodFromQuery(r *http.Request) (domain.ReportPeriod, error) {
	start, err := parseDateParam(r, "start_date")
	if err != nil {
		return domain.ReportPeriod{}, err
	}
	end, err := parseDateParam(r, "end_date")
	if err != nil {
		return domain.ReportPeriod{}, err
	}
	period := domain.ReportPeriod{}
	if start != nil {
		period.Start = *start
	}
	if end != nil {
		period.End = *end
	}
	return period, nil
}

func profitLossHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/profit-loss")
		defer span.End()

		period, err := periodFromQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		stmt, err := svc.ProfitLoss(ctx, period, r.URL.Query().Get("account_id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stmt)
	}
}

func financialSummaryHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/summary")
		defer span.End()

		period, err := periodFromQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		summary, err := svc.FinancialSummary(ctx, period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func taxReportHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reports/tax")
		defer span.End()

		period, err := periodFromQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := svc.TaxReport(ctx, period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
