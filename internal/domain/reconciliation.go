package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Bank reconciliation
// ============================================================

// Reconciliation statuses. A discrepancy is business data, not an
// error: the record is returned and persisted for audit.
const (
	ReconciliationInProgress  = "in_progress"
	ReconciliationCompleted   = "completed"
	ReconciliationDiscrepancy = "discrepancy"
)

// ReconciliationEpsilon is the tolerance under which book and
// statement balances are considered matched (one cent).
var ReconciliationEpsilon = decimal.NewFromFloat(0.01)

// BankReconciliation is a point-in-time comparison of the book balance
// against an external statement balance.
type BankReconciliation struct {
	ID                        string          `json:"id"`
	AccountID                 string          `json:"account_id"`
	StatementDate             time.Time       `json:"statement_date"`
	StatementBalance          decimal.Decimal `json:"statement_balance"`
	BookBalance               decimal.Decimal `json:"book_balance"`
	Difference                decimal.Decimal `json:"difference"`
	Status                    string          `json:"status"`
	Notes                     string          `json:"notes,omitempty"`
	ReconciledBy              string          `json:"reconciled_by"`
	MatchedTransactions       []string        `json:"matched_transactions"`
	UnmatchedBankTransactions []string        `json:"unmatched_bank_transactions"`
	UnmatchedBookTransactions []string        `json:"unmatched_book_transactions"`
	CreatedAt                 time.Time       `json:"created_at"`
}

// ReconciliationRequest carries the inputs for one reconciliation run.
type ReconciliationRequest struct {
	AccountID        string          `json:"account_id"`
	StatementDate    time.Time       `json:"statement_date"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	Notes            string          `json:"notes,omitempty"`
	ReconciledBy     string          `json:"reconciled_by"`
}
