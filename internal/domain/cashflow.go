package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Cash-flow statements
// ============================================================

// Cash-flow activity buckets.
const (
	ActivityOperating = "operating"
	ActivityInvesting = "investing"
	ActivityFinancing = "financing"
)

// CashFlowEntry is one line of a statement, carrying the cumulative
// balance after the entry is applied.
type CashFlowEntry struct {
	TransactionID string          `json:"transaction_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Activity      string          `json:"activity"`
	Inflow        bool            `json:"inflow"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
}

// ActivitySummary aggregates one activity bucket.
type ActivitySummary struct {
	Inflows  decimal.Decimal `json:"inflows"`
	Outflows decimal.Decimal `json:"outflows"`
	Net      decimal.Decimal `json:"net"`
}

// CashFlowStatement is a derived, read-only report over a date range
// and account. ClosingBalance always equals OpeningBalance plus total
// inflows minus total outflows.
type CashFlowStatement struct {
	AccountID      string          `json:"account_id"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	TotalInflows   decimal.Decimal `json:"total_inflows"`
	TotalOutflows  decimal.Decimal `json:"total_outflows"`
	Operating      ActivitySummary `json:"operating"`
	Investing      ActivitySummary `json:"investing"`
	Financing      ActivitySummary `json:"financing"`
	Entries        []CashFlowEntry `json:"entries"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// CashFlowRequest parameterizes statement generation. The caller
// supplies the opening balance; the engine does not derive historical
// balance on its own.
type CashFlowRequest struct {
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	AccountID      string          `json:"account_id,omitempty"` // default: primary account
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}
