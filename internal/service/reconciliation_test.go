package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenpos/finengine/internal/domain"
)

func seedReconAccount(e *engine, lastReconciled float64) {
	e.store.SeedAccount(domain.BankAccount{
		ID:                    "acc-recon",
		Name:                  "Main Bank Account",
		Currency:              "EUR",
		IsActive:              true,
		LastReconciledBalance: decimal.NewFromFloat(lastReconciled),
	})
}

func appendOn(t *testing.T, e *engine, accountID string, txnType string, amount float64, date time.Time) *domain.Transaction {
	t.Helper()
	txn, err := e.ledger.Append(context.Background(), &domain.Transaction{
		Type:      txnType,
		Category:  "sales",
		Amount:    decimal.NewFromFloat(amount),
		Date:      date,
		AccountID: accountID,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return txn
}

func TestReconcileClean(t *testing.T) {
	e := newEngine(t)
	seedReconAccount(e, 10000)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	txn := appendOn(t, e, "acc-recon", domain.TransactionIncome, 500, day)

	rec, err := e.recon.Reconcile(context.Background(), domain.ReconciliationRequest{
		AccountID:        "acc-recon",
		StatementDate:    day.Add(24 * time.Hour),
		StatementBalance: decimal.NewFromFloat(10500),
		ReconciledBy:     "op-1",
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if rec.Status != domain.ReconciliationCompleted {
		t.Fatalf("status = %q, want completed", rec.Status)
	}
	mustEqual(t, rec.BookBalance, 10500, "book balance")
	mustEqual(t, rec.Difference, 0, "difference")
	if len(rec.MatchedTransactions) != 1 || rec.MatchedTransactions[0] != txn.ID {
		t.Errorf("matched transactions = %v", rec.MatchedTransactions)
	}

	// Commit side effects: transaction marked, account stamped.
	txns, _ := e.ledger.Query(context.Background(), domain.TransactionFilter{AccountID: "acc-recon"})
	if !txns[0].IsReconciled || txns[0].ReconciledBy != "op-1" {
		t.Error("transaction should be marked reconciled by op-1")
	}
	acct, _ := e.ledger.Account(context.Background(), "acc-recon")
	mustEqual(t, acct.LastReconciledBalance, 10500, "account last reconciled balance")
	if acct.LastReconciledAt == nil || !acct.LastReconciledAt.Equal(e.clock.T) {
		t.Error("account should carry the reconciliation timestamp")
	}
}

func TestReconcileDiscrepancyHasNoSideEffects(t *testing.T) {
	e := newEngine(t)
	seedReconAccount(e, 10000)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	txn := appendOn(t, e, "acc-recon", domain.TransactionIncome, 500, day)

	rec, err := e.recon.Reconcile(context.Background(), domain.ReconciliationRequest{
		AccountID:        "acc-recon",
		StatementDate:    day.Add(24 * time.Hour),
		StatementBalance: decimal.NewFromFloat(10490),
		ReconciledBy:     "op-1",
	})
	if err != nil {
		t.Fatalf("a discrepancy is a result, not an error: %v", err)
	}

	if rec.Status != domain.ReconciliationDiscrepancy {
		t.Fatalf("status = %q, want discrepancy", rec.Status)
	}
	mustEqual(t, rec.Difference, 10, "difference")
	if len(rec.UnmatchedBookTransactions) != 1 || rec.UnmatchedBookTransactions[0] != txn.ID {
		t.Errorf("unmatched book transactions = %v", rec.UnmatchedBookTransactions)
	}

	// Nothing committed: the batch stays unreconciled and the account
	// keeps its old reconciliation state.
	txns, _ := e.ledger.Query(context.Background(), domain.TransactionFilter{AccountID: "acc-recon"})
	if txns[0].IsReconciled {
		t.Error("transaction must stay unreconciled after a discrepancy")
	}
	acct, _ := e.ledger.Account(context.Background(), "acc-recon")
	mustEqual(t, acct.LastReconciledBalance, 10000, "account balance untouched")
	if acct.LastReconciledAt != nil {
		t.Error("account timestamp must stay untouched")
	}

	// The record is persisted for audit either way.
	history, err := e.recon.List(context.Background(), "acc-recon")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(history) != 1 || history[0].Status != domain.ReconciliationDiscrepancy {
		t.Errorf("history = %+v", history)
	}
}

func TestReconcileEpsilonBoundary(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		statement float64
		want      string
	}{
		{"sub-cent difference matches", 500.005, domain.ReconciliationCompleted},
		{"exactly one cent is a discrepancy", 500.01, domain.ReconciliationDiscrepancy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newEngine(t)
			appendOn(t, eng, "acc-1", domain.TransactionIncome, 500, day)

			rec, err := eng.recon.Reconcile(context.Background(), domain.ReconciliationRequest{
				AccountID:        "acc-1",
				StatementDate:    day.Add(24 * time.Hour),
				StatementBalance: decimal.NewFromFloat(tt.statement),
				ReconciledBy:     "op-1",
			})
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if rec.Status != tt.want {
				t.Errorf("status = %q, want %q (difference %s)", rec.Status, tt.want, rec.Difference)
			}
		})
	}
}

func TestReconcileUnknownAccount(t *testing.T) {
	e := newEngine(t)

	_, err := e.recon.Reconcile(context.Background(), domain.ReconciliationRequest{
		AccountID:        "acc-missing",
		StatementBalance: decimal.NewFromFloat(100),
		ReconciledBy:     "op-1",
	})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestReconcileRetryAfterDiscrepancy(t *testing.T) {
	e := newEngine(t)
	seedReconAccount(e, 10000)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	appendOn(t, e, "acc-recon", domain.TransactionIncome, 500, day)

	// First run against a stale statement flags a discrepancy.
	first, err := e.recon.Reconcile(context.Background(), domain.ReconciliationRequest{
		AccountID:        "acc-recon",
		StatementDate:    day.Add(24 * time.Hour),
		StatementBalance: decimal.NewFromFloat(10490),
		ReconciledBy:     "op-1",
	})
	if err != nil || first.Status != domain.ReconciliationDiscrepancy {
		t.Fatalf("first run: %v / %v", first, err)
	}

	// The corrected statement reconciles cleanly against fresh state.
	second, err := e.recon.Reconcile(context.Background(), domain.ReconciliationRequest{
		AccountID:        "acc-recon",
		StatementDate:    day.Add(24 * time.Hour),
		StatementBalance: decimal.NewFromFloat(10500),
		ReconciledBy:     "op-1",
	})
	if err != nil || second.Status != domain.ReconciliationCompleted {
		t.Fatalf("second run: %v / %v", second, err)
	}

	history, _ := e.recon.List(context.Background(), "acc-recon")
	if len(history) != 2 {
		t.Errorf("both runs must be kept for audit, got %d", len(history))
	}
}
