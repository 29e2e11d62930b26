// Package service provides the business logic layer of the
// reconciliation and reporting engine: the transaction ledger, the
// cash-flow calculator, the bank reconciliation engine, the end-of-day
// closer and the report compiler.
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

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService owns the transaction ledger: append, query and bulk
// reconciliation marking. Statements and reports read the ledger, they
// never mutate it.
type LedgerService struct {
	store   port.LedgerStore
	clock   port.Clock
	locks   *AccountLocks
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(store port.LedgerStore, clock port.Clock, locks *AccountLocks, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, clock: clock, locks: locks, metrics: metrics, logger: logger}
}

// Append validates and stores a new transaction. The store assigns the
// id; status defaults to completed. Amount must be non-negative —
// direction is carried by the type, never by a negative amount.
func (s *LedgerService) Append(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Append")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", txn.AccountID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("ledger_append", time.Since(start)) }()

	if txn.Amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be non-negative"}
	}
	switch txn.Type {
	case domain.TransactionIncome, domain.TransactionExpense, domain.TransactionTransfer:
	default:
		return nil, &domain.ErrValidation{Field: "type", Message: "must be income, expense or transfer"}
	}
	if txn.AccountID == "" {
		return nil, &domain.ErrValidation{Field: "account_id", Message: "required"}
	}
	if _, err := s.store.GetAccount(ctx, txn.AccountID); err != nil {
		return nil, &domain.ErrValidation{Field: "account_id", Message: "unknown account: " + txn.AccountID}
	}

	release, err := s.locks.acquire(ctx, txn.AccountID)
	if err != nil {
		s.metrics.IncrLockConflict("ledger_append")
		return nil, err
	}
	defer release()

	now := s.clock.Now()
	stored := *txn
	stored.ID = uuid.New().String()
	if stored.Status == "" {
		stored.Status = domain.StatusCompleted
	}
	if stored.Date.IsZero() {
		stored.Date = now
	}
	if stored.PaymentMethod == "" {
		stored.PaymentMethod = domain.PaymentOther
	}
	stored.CreatedAt = now
	stored.IsReconciled = false
	stored.ReconciledAt = nil
	stored.ReconciledBy = ""

	if err := s.store.InsertTransaction(ctx, &stored); err != nil {
		s.logger.Error("failed to append transaction",
			zap.String("account_id", txn.AccountID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrTransactionAppended()
	s.logger.Info("transaction appended",
		zap.String("transaction_id", stored.ID),
		zap.String("account_id", stored.AccountID),
		zap.String("type", stored.Type),
		zap.String("amount", stored.Amount.String()),
	)

	return &stored, nil
}

// Query returns transactions matching the filter, ordered by date
// descending with insertion order as tiebreak for equal dates.
func (s *LedgerService) Query(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Query")
	defer span.End()

	return s.store.QueryTransactions(ctx, filter)
}

// Reconcile marks the given transactions reconciled. Unknown ids are
// silently skipped; re-marking an already-reconciled id is a no-op.
// The returned count covers only newly-marked transactions.
func (s *LedgerService) Reconcile(ctx context.Context, ids []string, reconciledBy string) (int, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.Int("ids.count", len(ids)))

	if len(ids) == 0 {
		return 0, &domain.ErrValidation{Field: "ids", Message: "at least one transaction id is required"}
	}
	if reconciledBy == "" {
		return 0, &domain.ErrValidation{Field: "reconciled_by", Message: "required"}
	}

	count, err := s.store.MarkReconciled(ctx, ids, reconciledBy, s.clock.Now())
	if err != nil {
		return 0, err
	}

	s.logger.Info("transactions reconciled",
		zap.Int("requested", len(ids)),
		zap.Int("marked", count),
		zap.String("reconciled_by", reconciledBy),
	)
	return count, nil
}

// Accounts exposes directory reads for the HTTP surface.
func (s *LedgerService) Accounts(ctx context.Context) ([]domain.BankAccount, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Accounts")
	defer span.End()

	return s.store.ListAccounts(ctx)
}

// Account fetches one account by id.
func (s *LedgerService) Account(ctx context.Context, accountID string) (*domain.BankAccount, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Account")
	defer span.End()

	return s.store.GetAccount(ctx, accountID)
}

// sumSigned totals transactions with direction applied.
func sumSigned(txns []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for i := range txns {
		total = total.Add(txns[i].SignedAmount())
	}
	return total
}
