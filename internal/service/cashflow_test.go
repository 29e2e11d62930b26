package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenpos/finengine/internal/domain"
)

func TestStatementConservation(t *testing.T) {
	e := newEngine(t)
	day := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	e.appendTxn(t, domain.TransactionIncome, "sales", domain.PaymentCash, 500, day)
	e.appendTxn(t, domain.TransactionExpense, "rent", domain.PaymentBankTransfer, 200, day.Add(time.Hour))
	e.appendTxn(t, domain.TransactionExpense, "equipment", domain.PaymentCard, 150, day.Add(2*time.Hour))
	e.appendTxn(t, domain.TransactionIncome, "loan", domain.PaymentBankTransfer, 1000, day.Add(3*time.Hour))

	stmt, err := e.cashflow.Statement(context.Background(), domain.CashFlowRequest{
		StartDate:      day.Add(-time.Hour),
		EndDate:        day.Add(24 * time.Hour),
		OpeningBalance: decimal.NewFromFloat(100),
	})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}

	mustEqual(t, stmt.TotalInflows, 1500, "total inflows")
	mustEqual(t, stmt.TotalOutflows, 350, "total outflows")
	mustEqual(t, stmt.ClosingBalance, 1250, "closing balance")

	// closing == opening + inflows - outflows
	want := stmt.OpeningBalance.Add(stmt.TotalInflows).Sub(stmt.TotalOutflows)
	if !stmt.ClosingBalance.Equal(want) {
		t.Errorf("conservation violated: closing %s, opening+in-out %s", stmt.ClosingBalance, want)
	}

	mustEqual(t, stmt.Operating.Net, 300, "operating net")
	mustEqual(t, stmt.Investing.Net, -150, "investing net")
	mustEqual(t, stmt.Financing.Net, 1000, "financing net")
}

func TestStatementRunningBalances(t *testing.T) {
	e := newEngine(t)
	day := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	e.appendTxn(t, domain.TransactionIncome, "sales", domain.PaymentCash, 50, day)
	e.appendTxn(t, domain.TransactionExpense, "supplier", domain.PaymentCash, 30, day.Add(time.Hour))

	stmt, err := e.cashflow.Statement(context.Background(), domain.CashFlowRequest{
		StartDate:      day.Add(-time.Hour),
		EndDate:        day.Add(24 * time.Hour),
		OpeningBalance: decimal.NewFromFloat(10),
	})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if len(stmt.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(stmt.Entries))
	}

	// Entries are chronological with running partial sums.
	if !stmt.Entries[0].Date.Before(stmt.Entries[1].Date) {
		t.Error("entries must be in ascending date order")
	}
	mustEqual(t, stmt.Entries[0].Balance, 60, "balance after first entry")
	mustEqual(t, stmt.Entries[1].Balance, 30, "balance after second entry")
}

func TestStatementEmptyRange(t *testing.T) {
	e := newEngine(t)

	// Transactions exist, but outside the requested window.
	e.appendTxn(t, domain.TransactionIncome, "sales", domain.PaymentCash, 500,
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))

	stmt, err := e.cashflow.Statement(context.Background(), domain.CashFlowRequest{
		StartDate:      time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		OpeningBalance: decimal.NewFromFloat(75),
	})
	if err != nil {
		t.Fatalf("empty range must not be an error, got %v", err)
	}

	if len(stmt.Entries) != 0 {
		t.Errorf("got %d entries, want 0", len(stmt.Entries))
	}
	mustEqual(t, stmt.TotalInflows, 0, "total inflows")
	mustEqual(t, stmt.TotalOutflows, 0, "total outflows")
	mustEqual(t, stmt.ClosingBalance, 75, "closing balance equals opening")
	mustEqual(t, stmt.Operating.Net, 0, "operating net")
}

func TestStatementDefaultsToPrimaryAccount(t *testing.T) {
	e := newEngine(t)

	stmt, err := e.cashflow.Statement(context.Background(), domain.CashFlowRequest{
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if stmt.AccountID != "acc-1" {
		t.Errorf("account = %q, want primary acc-1", stmt.AccountID)
	}
}

func TestStatementRejectsInvertedRange(t *testing.T) {
	e := newEngine(t)

	_, err := e.cashflow.Statement(context.Background(), domain.CashFlowRequest{
		StartDate: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected validation error for end before start")
	}
}
