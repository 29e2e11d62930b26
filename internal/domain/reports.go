package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Compiled reports (P&L, tax, summary)
// ============================================================

// ProfitLossLine is one allocated revenue or expense line.
type ProfitLossLine struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Ratio  decimal.Decimal `json:"ratio,omitempty"`
}

// ProfitLossStatement is derived from transaction aggregates with
// named allocation ratios applied. The ratios come from configuration,
// not from ledger-level category truth.
type ProfitLossStatement struct {
	StartDate     time.Time        `json:"start_date"`
	EndDate       time.Time        `json:"end_date"`
	AccountID     string           `json:"account_id,omitempty"`
	TotalRevenue  decimal.Decimal  `json:"total_revenue"`
	Revenue       []ProfitLossLine `json:"revenue"`
	TotalExpenses decimal.Decimal  `json:"total_expenses"`
	Expenses      []ProfitLossLine `json:"expenses"`
	GrossProfit   decimal.Decimal  `json:"gross_profit"`
	NetProfit     decimal.Decimal  `json:"net_profit"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// TaxReport summarizes taxable activity for a period.
type TaxReport struct {
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	TaxableRevenue     decimal.Decimal `json:"taxable_revenue"`
	DeductibleExpenses decimal.Decimal `json:"deductible_expenses"`
	TaxableIncome      decimal.Decimal `json:"taxable_income"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	TaxDue             decimal.Decimal `json:"tax_due"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// CategorySum aggregates one category for the financial summary.
type CategorySum struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// MonthlyTrend is one month of income vs. expenses.
type MonthlyTrend struct {
	Month    string          `json:"month"` // YYYY-MM
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// FinancialSummary is the aggregated period view consumed by
// dashboards.
type FinancialSummary struct {
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetCashFlow   decimal.Decimal `json:"net_cash_flow"`
	TopCategories []CategorySum   `json:"top_categories"`
	MonthlyTrend  []MonthlyTrend  `json:"monthly_trend"`
	Transactions  int             `json:"transaction_count"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// ReportPeriod is a resolved [start, end] window.
type ReportPeriod struct {
	Start time.Time
	End   time.Time
}
