package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/infra/observability"
	"github.com/lumenpos/finengine/internal/port"
)

var cashflowTracer = otel.Tracer("service/cashflow")

// CashFlowService aggregates ledger transactions into categorized,
// running-balance statements. It is read-only over the store.
type CashFlowService struct {
	store      port.LedgerStore
	clock      port.Clock
	classifier *ActivityClassifier
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewCashFlowService creates a new cash-flow calculator.
func NewCashFlowService(store port.LedgerStore, clock port.Clock, classifier *ActivityClassifier, metrics *observability.Metrics, logger *zap.Logger) *CashFlowService {
	return &CashFlowService{store: store, clock: clock, classifier: classifier, metrics: metrics, logger: logger}
}

// Statement computes a cash-flow statement for the requested range and
// account. The caller supplies the opening balance; an empty range is
// not an error and yields a zero-activity statement.
func (s *CashFlowService) Statement(ctx context.Context, req domain.CashFlowRequest) (*domain.CashFlowStatement, error) {
	ctx, span := cashflowTracer.Start(ctx, "CashFlowService.Statement")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("cash_flow_statement", time.Since(start)) }()

	if req.EndDate.Before(req.StartDate) {
		return nil, &domain.ErrValidation{Field: "end_date", Message: "must not precede start_date"}
	}

	accountID := req.AccountID
	if accountID == "" {
		primary, err := s.store.GetPrimaryAccount(ctx)
		if err != nil {
			return nil, err
		}
		accountID = primary.ID
	} else if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("account.id", accountID))

	txns, err := s.store.QueryTransactions(ctx, domain.TransactionFilter{
		AccountID: accountID,
		Status:    domain.StatusCompleted,
		DateFrom:  &req.StartDate,
		DateTo:    &req.EndDate,
	})
	if err != nil {
		return nil, err
	}

	// The store returns date-descending; running balances need
	// chronological order.
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })

	stmt := &domain.CashFlowStatement{
		AccountID:      accountID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		OpeningBalance: req.OpeningBalance,
		ClosingBalance: req.OpeningBalance,
		TotalInflows:   decimal.Zero,
		TotalOutflows:  decimal.Zero,
		Operating:      zeroActivity(),
		Investing:      zeroActivity(),
		Financing:      zeroActivity(),
		Entries:        make([]domain.CashFlowEntry, 0, len(txns)),
		GeneratedAt:    s.clock.Now(),
	}

	balance := req.OpeningBalance
	for i := range txns {
		txn := &txns[i]
		activity := s.classifier.Classify(txn)
		inflow := txn.Inflow()

		balance = balance.Add(txn.SignedAmount())
		if inflow {
			stmt.TotalInflows = stmt.TotalInflows.Add(txn.Amount)
		} else {
			stmt.TotalOutflows = stmt.TotalOutflows.Add(txn.Amount)
		}
		applyActivity(stmt, activity, inflow, txn.Amount)

		stmt.Entries = append(stmt.Entries, domain.CashFlowEntry{
			TransactionID: txn.ID,
			Date:          txn.Date,
			Description:   txn.Description,
			Category:      txn.Category,
			Activity:      activity,
			Inflow:        inflow,
			Amount:        txn.Amount,
			Balance:       balance,
		})
	}
	stmt.ClosingBalance = balance

	s.metrics.IncrReportGenerated("cash_flow")
	s.logger.Debug("cash-flow statement generated",
		zap.String("account_id", accountID),
		zap.Int("entries", len(stmt.Entries)),
		zap.String("closing_balance", stmt.ClosingBalance.String()),
	)

	return stmt, nil
}

func zeroActivity() domain.ActivitySummary {
	return domain.ActivitySummary{Inflows: decimal.Zero, Outflows: decimal.Zero, Net: decimal.Zero}
}

func applyActivity(stmt *domain.CashFlowStatement, activity string, inflow bool, amount decimal.Decimal) {
	var bucket *domain.ActivitySummary
	switch activity {
	case domain.ActivityInvesting:
		bucket = &stmt.Investing
	case domain.ActivityFinancing:
		bucket = &stmt.Financing
	default:
		bucket = &stmt.Operating
	}
	if inflow {
		bucket.Inflows = bucket.Inflows.Add(amount)
	} else {
		bucket.Outflows = bucket.Outflows.Add(amount)
	}
	bucket.Net = bucket.Inflows.Sub(bucket.Outflows)
}
