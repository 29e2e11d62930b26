package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// End-of-day drawer close
// ============================================================

// End-of-day report statuses. open → closed → reconciled; reconciled
// is terminal. Reconciling directly from open is allowed.
const (
	EndOfDayOpen       = "open"
	EndOfDayClosed     = "closed"
	EndOfDayReconciled = "reconciled"
)

// PaymentBreakdown sums completed payments per method for one day.
type PaymentBreakdown struct {
	Cash          decimal.Decimal `json:"cash"`
	Card          decimal.Decimal `json:"card"`
	BankTransfer  decimal.Decimal `json:"bank_transfer"`
	MobilePayment decimal.Decimal `json:"mobile_payment"`
	StoreCredit   decimal.Decimal `json:"store_credit"`
	Other         decimal.Decimal `json:"other"`
}

// CashMovements isolates the physical-drawer flows (cash method only).
type CashMovements struct {
	CashSales       decimal.Decimal `json:"cash_sales"`
	CashExpenses    decimal.Decimal `json:"cash_expenses"`
	CashDeposits    decimal.Decimal `json:"cash_deposits"`
	CashWithdrawals decimal.Decimal `json:"cash_withdrawals"`
}

// EndOfDayReport is a daily cash-drawer closeout.
// ExpectedClosingBalance = OpeningBalance + CashSales - CashExpenses
// + CashDeposits - CashWithdrawals.
type EndOfDayReport struct {
	ID                     string           `json:"id"`
	ReportDate             time.Time        `json:"report_date"`
	CashierID              string           `json:"cashier_id"`
	OpeningBalance         decimal.Decimal  `json:"opening_balance"`
	ExpectedClosingBalance decimal.Decimal  `json:"expected_closing_balance"`
	ActualClosingBalance   decimal.Decimal  `json:"actual_closing_balance"`
	Difference             decimal.Decimal  `json:"difference"`
	PaymentBreakdown       PaymentBreakdown `json:"payment_breakdown"`
	CashMovements          CashMovements    `json:"cash_movements"`
	Status                 string           `json:"status"`
	Notes                  string           `json:"notes,omitempty"`
	ReconciledBy           string           `json:"reconciled_by,omitempty"`
	ReconciledAt           *time.Time       `json:"reconciled_at,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
}

// EndOfDayRequest parameterizes report generation. ActualClosingBalance
// is optional; when absent it defaults to the expected balance.
type EndOfDayRequest struct {
	ReportDate           time.Time        `json:"report_date"`
	CashierID            string           `json:"cashier_id"`
	OpeningBalance       decimal.Decimal  `json:"opening_balance"`
	ActualClosingBalance *decimal.Decimal `json:"actual_closing_balance,omitempty"`
}
