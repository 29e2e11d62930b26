package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/infra/cache"
	"github.com/lumenpos/finengine/internal/infra/clock"
	"github.com/lumenpos/finengine/internal/infra/memstore"
	"github.com/lumenpos/finengine/internal/infra/observability"
	"github.com/lumenpos/finengine/internal/service"
)

// engine bundles a fully wired service layer over a fresh in-memory
// store with a fixed clock.
type engine struct {
	store    *memstore.Store
	clock    clock.Fixed
	ledger   *service.LedgerService
	cashflow *service.CashFlowService
	recon    *service.ReconciliationService
	endofday *service.EndOfDayService
	reports  *service.ReportService
	metrics  *observability.Metrics
}

func newEngine(t *testing.T) *engine {
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
	policy := service.NewAllocationPolicy(nil)
	classifier := service.NewActivityClassifier(nil)
	summaryCache := cache.New[*domain.FinancialSummary](time.Minute)

	ledger := service.NewLedgerService(store, clk, locks, metrics, logger)
	return &engine{
		store:    store,
		clock:    clk,
		ledger:   ledger,
		cashflow: service.NewCashFlowService(store, clk, classifier, metrics, logger),
		recon:    service.NewReconciliationService(store, ledger, clk, locks, metrics, logger),
		endofday: service.NewEndOfDayService(store, clk, locks, metrics, logger),
		reports:  service.NewReportService(store, clk, policy, summaryCache, metrics, logger),
		metrics:  metrics,
	}
}

// appendTxn stores a completed transaction dated the given day.
func (e *engine) appendTxn(t *testing.T, txnType, category, method string, amount float64, date time.Time) *domain.Transaction {
	t.Helper()

	stored, err := e.ledger.Append(context.Background(), &domain.Transaction{
		Type:          txnType,
		Category:      category,
		Description:   category + " entry",
		Amount:        decimal.NewFromFloat(amount),
		Date:          date,
		AccountID:     "acc-1",
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("append transaction: %v", err)
	}
	return stored
}

func mustEqual(t *testing.T, got decimal.Decimal, want float64, label string) {
	t.Helper()
	if !got.Equal(decimal.NewFromFloat(want)) {
		t.Errorf("%s = %s, want %v", label, got, want)
	}
}
