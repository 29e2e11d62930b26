package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/handler"
	"github.com/lumenpos/finengine/internal/infra/cache"
	"github.com/lumenpos/finengine/internal/infra/clock"
	"github.com/lumenpos/finengine/internal/infra/memstore"
	"github.com/lumenpos/finengine/internal/infra/observability"
	"github.com/lumenpos/finengine/internal/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memstore.New()
	store.SeedAccount(domain.BankAccount{
		ID:        "acc-1",
		Name:      "Operating Account",
		Currency:  "EUR",
		IsActive:  true,
		IsPrimary: true,
	})

	clk := clock.Fixed{T: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	locks := service.NewAccountLocks(time.Second)
	summaryCache := cache.New[*domain.FinancialSummary](time.Minute)

	ledger := service.NewLedgerService(store, clk, locks, metrics, logger)
	svcs := handler.Services{
		Ledger:         ledger,
		CashFlow:       service.NewCashFlowService(store, clk, service.NewActivityClassifier(nil), metrics, logger),
		Reconciliation: service.NewReconciliationService(store, ledger, clk, locks, metrics, logger),
		EndOfDay:       service.NewEndOfDayService(store, clk, locks, metrics, logger),
		Reports:        service.NewReportService(store, clk, service.NewAllocationPolicy(nil), summaryCache, metrics, logger),
	}
	return handler.NewRouter(svcs, metrics, "", logger)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAppendAndQueryTransactions(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/transactions", map[string]any{
		"type":           "income",
		"category":       "sales",
		"description":    "morning classes",
		"amount":         "120.50",
		"account_id":     "acc-1",
		"payment_method": "cash",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("append status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Status != domain.StatusCompleted {
		t.Errorf("created = %+v", created)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/transactions?type=income&category=sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("query status = %d", rec.Code)
	}
	var listing struct {
		Transactions []domain.Transaction `json:"transactions"`
		Count        int                  `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listing.Count != 1 || listing.Transactions[0].ID != created.ID {
		t.Errorf("listing = %+v", listing)
	}
}

func TestAppendValidationMapsTo400(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/transactions", map[string]any{
		"type":       "income",
		"amount":     "-5",
		"account_id": "acc-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUnknownAccountMapsTo404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/accounts/acc-nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestReconciliationFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/transactions", map[string]any{
		"type":       "income",
		"category":   "sales",
		"amount":     "500",
		"date":       "2025-03-10T00:00:00Z",
		"account_id": "acc-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("append: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/reconciliations", map[string]any{
		"account_id":        "acc-1",
		"statement_date":    "2025-03-11T00:00:00Z",
		"statement_balance": "500",
		"reconciled_by":     "op-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("reconcile: %d %s", rec.Code, rec.Body.String())
	}
	var result domain.BankReconciliation
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != domain.ReconciliationCompleted {
		t.Errorf("status = %q, want completed", result.Status)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/accounts/acc-1/reconciliations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}
}

func TestEndOfDayRoutes(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/reports/end-of-day", map[string]any{
		"report_date":     "2025-03-15T00:00:00Z",
		"cashier_id":      "cashier-1",
		"opening_balance": "500",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate: %d %s", rec.Code, rec.Body.String())
	}
	var report domain.EndOfDayReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/reports/end-of-day/%s/close", report.ID), map[string]any{
		"actual_closing_balance": "498.50",
		"cashier_id":             "cashier-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("close: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/reports/end-of-day/%s/reconcile", report.ID), map[string]any{
		"actual_closing_balance": "498.50",
		"notes":                  "short by 1.50",
		"reconciled_by":          "manager-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile: %d %s", rec.Code, rec.Body.String())
	}
	var reconciled domain.EndOfDayReport
	if err := json.Unmarshal(rec.Body.Bytes(), &reconciled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reconciled.Status != domain.EndOfDayReconciled {
		t.Errorf("status = %q, want reconciled", reconciled.Status)
	}
	if !reconciled.Difference.Equal(decimal.NewFromFloat(-1.50)) {
		t.Errorf("difference = %s, want -1.50", reconciled.Difference)
	}

	// Terminal state conflicts map to 409.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/v1/reports/end-of-day/%s/reconcile", report.ID), map[string]any{
		"actual_closing_balance": "500",
		"reconciled_by":          "manager-2",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("re-reconcile status = %d, want 409", rec.Code)
	}
}

func TestReportRoutes(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/v1/transactions", map[string]any{
		"type": "income", "category": "sales", "amount": "1000",
		"date": "2025-03-10T00:00:00Z", "account_id": "acc-1",
	})

	for _, path := range []string{
		"/v1/reports/profit-loss?start_date=2025-03-01&end_date=2025-03-31",
		"/v1/reports/summary?start_date=2025-03-01&end_date=2025-03-31",
		"/v1/reports/tax?start_date=2025-03-01&end_date=2025-03-31",
		"/v1/cashflow/statement?start_date=2025-03-01&end_date=2025-03-31",
	} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, body %s", path, rec.Code, rec.Body.String())
		}
	}

	// Missing dates map to 400.
	rec := doJSON(t, router, http.MethodGet, "/v1/reports/profit-loss", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing period status = %d, want 400", rec.Code)
	}
}

func TestOperationalRoutes(t *testing.T) {
	router := newTestRouter(t)

	for path, want := range map[string]int{
		"/healthz":           http.StatusOK,
		"/readyz":            http.StatusOK,
		"/metrics":           http.StatusOK,
		"/v1/metrics/engine": http.StatusOK,
	} {
		rec := doJSON(t, router, http.MethodGet, path, nil)
		if rec.Code != want {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}

	var snapshot domain.EngineMetrics
	rec := doJSON(t, router, http.MethodGet, "/v1/metrics/engine", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
}
