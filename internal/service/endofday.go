package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/infra/observability"
	"github.com/lumenpos/finengine/internal/port"
)

var eodTracer = otel.Tracer("service/endofday")

// EndOfDayService computes expected vs. actual drawer balances and
// drives the open → closed → reconciled lifecycle of daily reports.
type EndOfDayService struct {
	store   port.LedgerStore
	clock   port.Clock
	locks   *AccountLocks
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewEndOfDayService creates a new end-of-day closer.
func NewEndOfDayService(store port.LedgerStore, clock port.Clock, locks *AccountLocks, metrics *observability.Metrics, logger *zap.Logger) *EndOfDayService {
	return &EndOfDayService{store: store, clock: clock, locks: locks, metrics: metrics, logger: logger}
}

// Generate builds the report for one day. Expected closing balance is
// opening + cash sales - cash expenses + cash deposits - cash
// withdrawals. When no actual count is supplied the actual defaults to
// the expected balance and the difference is zero.
func (s *EndOfDayService) Generate(ctx context.Context, req domain.EndOfDayRequest) (*domain.EndOfDayReport, error) {
	ctx, span := eodTracer.Start(ctx, "EndOfDayService.Generate")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("end_of_day_generate", time.Since(start)) }()

	if req.CashierID == "" {
		return nil, &domain.ErrValidation{Field: "cashier_id", Message: "required"}
	}
	reportDate := req.ReportDate
	if reportDate.IsZero() {
		reportDate = s.clock.Now()
	}
	span.SetAttributes(attribute.String("report.date", reportDate.Format("2006-01-02")))

	dayStart := time.Date(reportDate.Year(), reportDate.Month(), reportDate.Day(), 0, 0, 0, 0, reportDate.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	txns, err := s.store.QueryTransactions(ctx, domain.TransactionFilter{
		Status:   domain.StatusCompleted,
		DateFrom: &dayStart,
		DateTo:   &dayEnd,
	})
	if err != nil {
		return nil, err
	}

	breakdown := domain.PaymentBreakdown{
		Cash:          decimal.Zero,
		Card:          decimal.Zero,
		BankTransfer:  decimal.Zero,
		MobilePayment: decimal.Zero,
		StoreCredit:   decimal.Zero,
		Other:         decimal.Zero,
	}
	movements := domain.CashMovements{
		CashSales:       decimal.Zero,
		CashExpenses:    decimal.Zero,
		CashDeposits:    decimal.Zero,
		CashWithdrawals: decimal.Zero,
	}

	for i := range txns {
		txn := &txns[i]

		if txn.Type == domain.TransactionIncome {
			switch txn.PaymentMethod {
			case domain.PaymentCash:
				breakdown.Cash = breakdown.Cash.Add(txn.Amount)
			case domain.PaymentCard:
				breakdown.Card = breakdown.Card.Add(txn.Amount)
			case domain.PaymentBankTransfer:
				breakdown.BankTransfer = breakdown.BankTransfer.Add(txn.Amount)
			case domain.PaymentMobilePayment:
				breakdown.MobilePayment = breakdown.MobilePayment.Add(txn.Amount)
			case domain.PaymentStoreCredit:
				breakdown.StoreCredit = breakdown.StoreCredit.Add(txn.Amount)
			default:
				breakdown.Other = breakdown.Other.Add(txn.Amount)
			}
		}

		if txn.PaymentMethod != domain.PaymentCash {
			continue
		}
		switch txn.Type {
		case domain.TransactionIncome:
			movements.CashSales = movements.CashSales.Add(txn.Amount)
		case domain.TransactionExpense:
			movements.CashExpenses = movements.CashExpenses.Add(txn.Amount)
		case domain.TransactionTransfer:
			switch txn.Category {
			case domain.CategoryDeposit:
				movements.CashDeposits = movements.CashDeposits.Add(txn.Amount)
			case domain.CategoryWithdrawal:
				movements.CashWithdrawals = movements.CashWithdrawals.Add(txn.Amount)
			}
		}
	}

	expected := req.OpeningBalance.
		Add(movements.CashSales).
		Sub(movements.CashExpenses).
		Add(movements.CashDeposits).
		Sub(movements.CashWithdrawals)

	actual := expected
	difference := decimal.Zero
	if req.ActualClosingBalance != nil {
		actual = *req.ActualClosingBalance
		difference = actual.Sub(expected)
	}

	report := &domain.EndOfDayReport{
		ID:                     uuid.New().String(),
		ReportDate:             dayStart,
		CashierID:              req.CashierID,
		OpeningBalance:         req.OpeningBalance,
		ExpectedClosingBalance: expected,
		ActualClosingBalance:   actual,
		Difference:             difference,
		PaymentBreakdown:       breakdown,
		CashMovements:          movements,
		Status:                 domain.EndOfDayOpen,
		CreatedAt:              s.clock.Now(),
	}

	if err := s.store.InsertEndOfDayReport(ctx, report); err != nil {
		return nil, err
	}

	s.metrics.IncrReportGenerated("end_of_day")
	s.logger.Info("end-of-day report generated",
		zap.String("report_id", report.ID),
		zap.String("report_date", dayStart.Format("2006-01-02")),
		zap.String("cashier_id", req.CashierID),
		zap.String("expected", expected.String()),
		zap.String("difference", difference.String()),
	)

	return report, nil
}

// Close records the counted drawer balance when the day ends, before
// reconciliation. open → closed only.
func (s *EndOfDayService) Close(ctx context.Context, reportID string, actual decimal.Decimal, cashierID string) (*domain.EndOfDayReport, error) {
	ctx, span := eodTracer.Start(ctx, "EndOfDayService.Close")
	defer span.End()

	release, err := s.locks.acquire(ctx, "eod:"+reportID)
	if err != nil {
		s.metrics.IncrLockConflict("end_of_day_close")
		return nil, err
	}
	defer release()

	report, err := s.store.GetEndOfDayReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != domain.EndOfDayOpen {
		return nil, &domain.ErrConflict{Message: "cannot close report with status '" + report.Status + "'"}
	}

	report.ActualClosingBalance = actual
	report.Difference = actual.Sub(report.ExpectedClosingBalance)
	report.Status = domain.EndOfDayClosed
	if cashierID != "" {
		report.CashierID = cashierID
	}

	if err := s.store.UpdateEndOfDayReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("end-of-day report closed",
		zap.String("report_id", report.ID),
		zap.String("difference", report.Difference.String()),
	)
	return report, nil
}

// ReconcileReport confirms the drawer count and makes the report
// terminal. The transition is one-way: a reconciled report cannot be
// reopened through this interface.
func (s *EndOfDayService) ReconcileReport(ctx context.Context, reportID string, actual decimal.Decimal, notes, reconciledBy string) (*domain.EndOfDayReport, error) {
	ctx, span := eodTracer.Start(ctx, "EndOfDayService.ReconcileReport")
	defer span.End()

	if reconciledBy == "" {
		return nil, &domain.ErrValidation{Field: "reconciled_by", Message: "required"}
	}

	release, err := s.locks.acquire(ctx, "eod:"+reportID)
	if err != nil {
		s.metrics.IncrLockConflict("end_of_day_reconcile")
		return nil, err
	}
	defer release()

	report, err := s.store.GetEndOfDayReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status == domain.EndOfDayReconciled {
		return nil, &domain.ErrConflict{Message: "report already reconciled"}
	}

	now := s.clock.Now()
	report.ActualClosingBalance = actual
	report.Difference = actual.Sub(report.ExpectedClosingBalance)
	report.Status = domain.EndOfDayReconciled
	report.Notes = notes
	report.ReconciledBy = reconciledBy
	report.ReconciledAt = &now

	if err := s.store.UpdateEndOfDayReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("end-of-day report reconciled",
		zap.String("report_id", report.ID),
		zap.String("reconciled_by", reconciledBy),
		zap.String("difference", report.Difference.String()),
	)
	return report, nil
}

// Get fetches one report.
func (s *EndOfDayService) Get(ctx context.Context, reportID string) (*domain.EndOfDayReport, error) {
	ctx, span := eodTracer.Start(ctx, "EndOfDayService.Get")
	defer span.End()

	return s.store.GetEndOfDayReport(ctx, reportID)
}

// List returns reports in the optional date window, newest first.
func (s *EndOfDayService) List(ctx context.Context, from, to *time.Time) ([]domain.EndOfDayReport, error) {
	ctx, span := eodTracer.Start(ctx, "EndOfDayService.List")
	defer span.End()

	return s.store.ListEndOfDayReports(ctx, from, to)
}
