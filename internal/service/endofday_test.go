package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenpos/finengine/internal/domain"
)

func TestGenerateEndOfDay(t *testing.T) {
	e := newEngine(t)
	day := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	// Drawer activity for the day.
	e.appendTxn(t, domain.TransactionIncome, "sales", domain.PaymentCash, 450, day)
	e.appendTxn(t, domain.TransactionIncome, "sales", domain.PaymentCard, 300, day.Add(time.Hour))
	e.appendTxn(t, domain.TransactionExpense, "supplies", domain.PaymentCash, 50, day.Add(2*time.Hour))
	e.appendTxn(t, domain.TransactionTransfer, domain.CategoryWithdrawal, domain.PaymentCash, 100, day.Add(3*time.Hour))
	// Previous day, must not count.
	e.appendTxn(t, domain.TransactionIncome, "sales", domain.PaymentCash, 999, day.Add(-24*time.Hour))

	report, err := e.endofday.Generate(context.Background(), domain.EndOfDayRequest{
		ReportDate:     day,
		CashierID:      "cashier-1",
		OpeningBalance: decimal.NewFromFloat(500),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	mustEqual(t, report.PaymentBreakdown.Cash, 450, "cash breakdown")
	mustEqual(t, report.PaymentBreakdown.Card, 300, "card breakdown")
	mustEqual(t, report.CashMovements.CashSales, 450, "cash sales")
	mustEqual(t, report.CashMovements.CashExpenses, 50, "cash expenses")
	mustEqual(t, report.CashMovements.CashWithdrawals, 100, "cash withdrawals")

	// expected = 500 + 450 - 50 + 0 - 100
	mustEqual(t, report.ExpectedClosingBalance, 800, "expected closing")
	// No count supplied: actual defaults to expected, difference zero.
	mustEqual(t, report.ActualClosingBalance, 800, "actual defaults to expected")
	mustEqual(t, report.Difference, 0, "difference")
	if report.Status != domain.EndOfDayOpen {
		t.Errorf("status = %q, want open", report.Status)
	}
}

func TestGenerateEndOfDayVariance(t *testing.T) {
	e := newEngine(t)
	day := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	e.appendTxn(t, domain.TransactionIncome, "sales", domain.PaymentCash, 450, day)

	actual := decimal.NewFromFloat(948.50)
	report, err := e.endofday.Generate(context.Background(), domain.EndOfDayRequest{
		ReportDate:           day,
		CashierID:            "cashier-1",
		OpeningBalance:       decimal.NewFromFloat(500),
		ActualClosingBalance: &actual,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	mustEqual(t, report.ExpectedClosingBalance, 950, "expected closing")
	mustEqual(t, report.ActualClosingBalance, 948.50, "actual closing")
	mustEqual(t, report.Difference, -1.50, "shortage carries its sign")
}

func TestEndOfDayLifecycle(t *testing.T) {
	e := newEngine(t)
	day := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	e.appendTxn(t, domain.TransactionIncome, "sales", domain.PaymentCash, 450, day)

	report, err := e.endofday.Generate(ctx, domain.EndOfDayRequest{
		ReportDate:     day,
		CashierID:      "cashier-1",
		OpeningBalance: decimal.NewFromFloat(500),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// open -> closed with the counted drawer.
	closed, err := e.endofday.Close(ctx, report.ID, decimal.NewFromFloat(948.50), "cashier-1")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != domain.EndOfDayClosed {
		t.Fatalf("status = %q, want closed", closed.Status)
	}
	mustEqual(t, closed.Difference, -1.50, "difference after close")

	// Closing twice conflicts.
	if _, err := e.endofday.Close(ctx, report.ID, decimal.NewFromFloat(948.50), "cashier-1"); err == nil {
		t.Error("second close must fail")
	}

	// closed -> reconciled (terminal).
	reconciled, err := e.endofday.ReconcileReport(ctx, report.ID, decimal.NewFromFloat(948.50), "till was short", "manager-1")
	if err != nil {
		t.Fatalf("ReconcileReport: %v", err)
	}
	if reconciled.Status != domain.EndOfDayReconciled {
		t.Fatalf("status = %q, want reconciled", reconciled.Status)
	}
	if reconciled.ReconciledBy != "manager-1" || reconciled.ReconciledAt == nil {
		t.Error("reconciliation metadata missing")
	}
	if reconciled.Notes != "till was short" {
		t.Errorf("notes = %q", reconciled.Notes)
	}

	// Terminal: no further transitions.
	var conflict *domain.ErrConflict
	_, err = e.endofday.ReconcileReport(ctx, report.ID, decimal.NewFromFloat(950), "", "manager-2")
	if !errors.As(err, &conflict) {
		t.Errorf("re-reconcile should conflict, got %v", err)
	}
	_, err = e.endofday.Close(ctx, report.ID, decimal.NewFromFloat(950), "cashier-1")
	if !errors.As(err, &conflict) {
		t.Errorf("close after reconcile should conflict, got %v", err)
	}
}

func TestEndOfDayReconcileFromOpen(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	report, err := e.endofday.Generate(ctx, domain.EndOfDayRequest{
		CashierID:      "cashier-1",
		OpeningBalance: decimal.NewFromFloat(200),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// The close step is optional; reconcile straight from open.
	reconciled, err := e.endofday.ReconcileReport(ctx, report.ID, decimal.NewFromFloat(200), "", "manager-1")
	if err != nil {
		t.Fatalf("ReconcileReport: %v", err)
	}
	if reconciled.Status != domain.EndOfDayReconciled {
		t.Errorf("status = %q, want reconciled", reconciled.Status)
	}
}

func TestEndOfDayList(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	for _, day := range []time.Time{
		time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	} {
		if _, err := e.endofday.Generate(ctx, domain.EndOfDayRequest{
			ReportDate:     day,
			CashierID:      "cashier-1",
			OpeningBalance: decimal.NewFromFloat(100),
		}); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}

	from := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	reports, err := e.endofday.List(ctx, &from, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if !reports[0].ReportDate.After(reports[1].ReportDate) {
		t.Error("reports must be newest first")
	}
}
