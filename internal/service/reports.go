package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/infra/observability"
	"github.com/lumenpos/finengine/internal/port"
)

var reportTracer = otel.Tracer("service/reports")

// ReportService compiles period reports (profit/loss, tax, financial
// summary) from the ledger. It only reads; every figure is derivable
// from transactions plus the allocation policy.
type ReportService struct {
	store        port.LedgerStore
	clock        port.Clock
	policy       *AllocationPolicy
	summaryCache port.Cache[*domain.FinancialSummary]
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewReportService creates a new report compiler.
func NewReportService(store port.LedgerStore, clock port.Clock, policy *AllocationPolicy, summaryCache port.Cache[*domain.FinancialSummary], metrics *observability.Metrics, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, clock: clock, policy: policy, summaryCache: summaryCache, metrics: metrics, logger: logger}
}

func validatePeriod(period domain.ReportPeriod) error {
	if period.Start.IsZero() || period.End.IsZero() {
		return &domain.ErrValidation{Field: "period", Message: "start and end dates are required"}
	}
	if period.End.Before(period.Start) {
		return &domain.ErrValidation{Field: "period", Message: "end date must not be before start date"}
	}
	return nil
}

// ProfitLoss aggregates revenue and expenses for the period and splits
// the revenue across the configured allocation shares. The instructor
// fee line is derived from class revenue, not stored on any
// transaction.
func (s *ReportService) ProfitLoss(ctx context.Context, period domain.ReportPeriod, accountID string) (*domain.ProfitLossStatement, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.ProfitLoss")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("report_profit_loss", time.Since(start)) }()

	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	if accountID != "" {
		if _, err := s.store.GetAccount(ctx, accountID); err != nil {
			return nil, err
		}
	}

	txns, err := s.store.QueryTransactions(ctx, domain.TransactionFilter{
		Status:    domain.StatusCompleted,
		AccountID: accountID,
		DateFrom:  &period.Start,
		DateTo:    &period.End,
	})
	if err != nil {
		return nil, err
	}

	totalRevenue := decimal.Zero
	expenseByCategory := map[string]decimal.Decimal{}
	for i := range txns {
		txn := &txns[i]
		switch txn.Type {
		case domain.TransactionIncome:
			totalRevenue = totalRevenue.Add(txn.Amount)
		case domain.TransactionExpense:
			category := txn.Category
			if category == "" {
				category = "uncategorized"
			}
			expenseByCategory[category] = expenseByCategory[category].Add(txn.Amount)
		}
	}

	revenue := make([]domain.ProfitLossLine, 0, 4)
	for _, name := range s.policy.RevenueShares() {
		ratio := s.policy.Ratio(name)
		revenue = append(revenue, domain.ProfitLossLine{
			Name:   name,
			Amount: totalRevenue.Mul(ratio).Round(2),
			Ratio:  ratio,
		})
	}

	expenses := make([]domain.ProfitLossLine, 0, len(expenseByCategory)+1)
	totalExpenses := decimal.Zero
	for category, sum := range expenseByCategory {
		expenses = append(expenses, domain.ProfitLossLine{Name: category, Amount: sum})
		totalExpenses = totalExpenses.Add(sum)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].Name < expenses[j].Name })

	feeRatio := s.policy.Ratio(RatioInstructorFee)
	if feeRatio.IsPositive() {
		classShare := totalRevenue.Mul(s.policy.Ratio(RatioClassRevenueShare))
		fee := classShare.Mul(feeRatio).Round(2)
		expenses = append(expenses, domain.ProfitLossLine{
			Name:   "instructor_fees",
			Amount: fee,
			Ratio:  feeRatio,
		})
		totalExpenses = totalExpenses.Add(fee)
	}

	stmt := &domain.ProfitLossStatement{
		StartDate:     period.Start,
		EndDate:       period.End,
		AccountID:     accountID,
		TotalRevenue:  totalRevenue,
		Revenue:       revenue,
		TotalExpenses: totalExpenses,
		Expenses:      expenses,
		GrossProfit:   totalRevenue.Sub(sumLines(expenses, "instructor_fees")),
		NetProfit:     totalRevenue.Sub(totalExpenses),
		GeneratedAt:   s.clock.Now(),
	}

	s.metrics.IncrReportGenerated("profit_loss")
	return stmt, nil
}

// sumLines totals lines excluding the named derived line.
func sumLines(lines []domain.ProfitLossLine, exclude string) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Name == exclude {
			continue
		}
		total = total.Add(line.Amount)
	}
	return total
}

// TaxReport computes taxable income and tax due at the configured rate.
// Transfers are movements, not taxable events.
func (s *ReportService) TaxReport(ctx context.Context, period domain.ReportPeriod) (*domain.TaxReport, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.TaxReport")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("report_tax", time.Since(start)) }()

	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	txns, err := s.store.QueryTransactions(ctx, domain.TransactionFilter{
		Status:   domain.StatusCompleted,
		DateFrom: &period.Start,
		DateTo:   &period.End,
	})
	if err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	deductible := decimal.Zero
	for i := range txns {
		switch txns[i].Type {
		case domain.TransactionIncome:
			revenue = revenue.Add(txns[i].Amount)
		case domain.TransactionExpense:
			deductible = deductible.Add(txns[i].Amount)
		}
	}

	taxable := revenue.Sub(deductible)
	rate := s.policy.Ratio(RatioTaxRate)
	due := decimal.Zero
	if taxable.IsPositive() {
		due = taxable.Mul(rate).Round(2)
	}

	report := &domain.TaxReport{
		StartDate:          period.Start,
		EndDate:            period.End,
		TaxableRevenue:     revenue,
		DeductibleExpenses: deductible,
		TaxableIncome:      taxable,
		TaxRate:            rate,
		TaxDue:             due,
		GeneratedAt:        s.clock.Now(),
	}

	s.metrics.IncrReportGenerated("tax")
	return report, nil
}

// FinancialSummary aggregates totals, top categories and monthly trend
// for the period. Results are cached per period; the fan-out runs the
// three aggregations concurrently.
func (s *ReportService) FinancialSummary(ctx context.Context, period domain.ReportPeriod) (*domain.FinancialSummary, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.FinancialSummary")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("report_summary", time.Since(start)) }()

	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("summary:%s:%s", period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
	if cached, ok := s.summaryCache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("reports")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.metrics.IncrCacheMiss("reports")

	txns, err := s.store.QueryTransactions(ctx, domain.TransactionFilter{
		Status:   domain.StatusCompleted,
		DateFrom: &period.Start,
		DateTo:   &period.End,
	})
	if err != nil {
		return nil, err
	}

	summary := &domain.FinancialSummary{
		StartDate:    period.Start,
		EndDate:      period.End,
		Transactions: len(txns),
		GeneratedAt:  s.clock.Now(),
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		income := decimal.Zero
		expenses := decimal.Zero
		for i := range txns {
			switch txns[i].Type {
			case domain.TransactionIncome:
				income = income.Add(txns[i].Amount)
			case domain.TransactionExpense:
				expenses = expenses.Add(txns[i].Amount)
			}
		}
		summary.TotalIncome = income
		summary.TotalExpenses = expenses
		summary.NetCashFlow = income.Sub(expenses)
		return nil
	})

	g.Go(func() error {
		summary.TopCategories = topCategories(txns, 5)
		return nil
	})

	g.Go(func() error {
		summary.MonthlyTrend = monthlyTrend(txns)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.summaryCache.Set(cacheKey, summary)
	s.metrics.IncrReportGenerated("financial_summary")
	s.logger.Debug("financial summary compiled",
		zap.String("period", cacheKey),
		zap.Int("transactions", len(txns)),
	)
	return summary, nil
}

func topCategories(txns []domain.Transaction, limit int) []domain.CategorySum {
	type agg struct {
		total decimal.Decimal
		count int
	}
	byCategory := map[string]*agg{}
	for i := range txns {
		category := txns[i].Category
		if category == "" {
			category = "uncategorized"
		}
		entry, ok := byCategory[category]
		if !ok {
			entry = &agg{total: decimal.Zero}
			byCategory[category] = entry
		}
		entry.total = entry.total.Add(txns[i].Amount)
		entry.count++
	}

	sums := make([]domain.CategorySum, 0, len(byCategory))
	for category, entry := range byCategory {
		sums = append(sums, domain.CategorySum{Category: category, Total: entry.total, Count: entry.count})
	}
	sort.Slice(sums, func(i, j int) bool {
		if !sums[i].Total.Equal(sums[j].Total) {
			return sums[i].Total.GreaterThan(sums[j].Total)
		}
		return sums[i].Category < sums[j].Category
	})
	if len(sums) > limit {
		sums = sums[:limit]
	}
	return sums
}

func monthlyTrend(txns []domain.Transaction) []domain.MonthlyTrend {
	type agg struct {
		income   decimal.Decimal
		expenses decimal.Decimal
	}
	byMonth := map[string]*agg{}
	for i := range txns {
		month := txns[i].Date.Format("2006-01")
		entry, ok := byMonth[month]
		if !ok {
			entry = &agg{income: decimal.Zero, expenses: decimal.Zero}
			byMonth[month] = entry
		}
		switch txns[i].Type {
		case domain.TransactionIncome:
			entry.income = entry.income.Add(txns[i].Amount)
		case domain.TransactionExpense:
			entry.expenses = entry.expenses.Add(txns[i].Amount)
		}
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	trend := make([]domain.MonthlyTrend, 0, len(months))
	for _, month := range months {
		entry := byMonth[month]
		trend = append(trend, domain.MonthlyTrend{Month: month, Income: entry.income, Expenses: entry.expenses})
	}
	return trend
}
