package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions (ledger)
// ============================================================

// Transaction types. Direction is carried by the type; Amount is
// always non-negative.
const (
	TransactionIncome   = "income"
	TransactionExpense  = "expense"
	TransactionTransfer = "transfer"
)

// Transaction statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Payment methods recognized by the end-of-day breakdown.
const (
	PaymentCash          = "cash"
	PaymentCard          = "card"
	PaymentBankTransfer  = "bank_transfer"
	PaymentMobilePayment = "mobile_payment"
	PaymentStoreCredit   = "store_credit"
	PaymentOther         = "other"
)

// Transaction represents a single money movement in the ledger.
// Once created it is immutable except for the status transition and
// the one-way reconciliation stamp.
type Transaction struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"` // income, expense, transfer
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Reference     string          `json:"reference,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	AccountID     string          `json:"account_id"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	IsReconciled  bool            `json:"is_reconciled"`
	ReconciledAt  *time.Time      `json:"reconciled_at,omitempty"`
	ReconciledBy  string          `json:"reconciled_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Inflow reports whether the transaction moves money into the account.
// Transfers are treated as inflows when categorized as deposits.
func (t *Transaction) Inflow() bool {
	switch t.Type {
	case TransactionIncome:
		return true
	case TransactionTransfer:
		return t.Category == CategoryDeposit
	default:
		return false
	}
}

// SignedAmount returns the amount with direction applied.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Inflow() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Transfer categories used for drawer movements.
const (
	CategoryDeposit    = "deposit"
	CategoryWithdrawal = "withdrawal"
)

// TransactionFilter holds the optional, conjunctive query predicates.
// Zero values mean "no constraint".
type TransactionFilter struct {
	Type          string
	Category      string
	Status        string
	PaymentMethod string
	AccountID     string
	DateFrom      *time.Time
	DateTo        *time.Time
	Search        string // free text over description/reference
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Reconciled    *bool
}
