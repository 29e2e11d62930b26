package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Bank accounts
// ============================================================

// BankAccount is a cash-holding entity. Balances are mutated only by a
// successful reconciliation or an explicit balance-set operation.
type BankAccount struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	BankName              string          `json:"bank_name,omitempty"`
	AccountNumber         string          `json:"account_number,omitempty"`
	Currency              string          `json:"currency"`
	CurrentBalance        decimal.Decimal `json:"current_balance"`
	AvailableBalance      decimal.Decimal `json:"available_balance"`
	IsActive              bool            `json:"is_active"`
	IsPrimary             bool            `json:"is_primary"`
	LastReconciledAt      *time.Time      `json:"last_reconciled_at,omitempty"`
	LastReconciledBalance decimal.Decimal `json:"last_reconciled_balance"`
	CreatedAt             time.Time       `json:"created_at"`
}
