package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/infra/observability"
	"github.com/lumenpos/finengine/internal/port"
)

var reconTracer = otel.Tracer("service/reconciliation")

// ReconciliationService compares the book balance against an external
// statement balance. A run is two-phase: compute first, then commit
// side effects only on a match. A mismatch is returned as a normal
// record with status discrepancy — business data, not an error.
type ReconciliationService struct {
	store   port.LedgerStore
	ledger  *LedgerService
	clock   port.Clock
	locks   *AccountLocks
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewReconciliationService creates a new bank reconciliation engine.
func NewReconciliationService(store port.LedgerStore, ledger *LedgerService, clock port.Clock, locks *AccountLocks, metrics *observability.Metrics, logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{store: store, ledger: ledger, clock: clock, locks: locks, metrics: metrics, logger: logger}
}

// Reconcile runs one reconciliation attempt for the account. On a
// completed run the account balance is updated and the whole queried
// batch is marked reconciled; on a discrepancy nothing is touched so a
// human can investigate and retry. The record is persisted either way.
func (s *ReconciliationService) Reconcile(ctx context.Context, req domain.ReconciliationRequest) (*domain.BankReconciliation, error) {
	ctx, span := reconTracer.Start(ctx, "ReconciliationService.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", req.AccountID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("bank_reconciliation", time.Since(start)) }()

	if req.AccountID == "" {
		return nil, &domain.ErrValidation{Field: "account_id", Message: "required"}
	}
	if req.ReconciledBy == "" {
		return nil, &domain.ErrValidation{Field: "reconciled_by", Message: "required"}
	}
	if req.StatementDate.IsZero() {
		req.StatementDate = s.clock.Now()
	}

	release, err := s.locks.acquire(ctx, req.AccountID)
	if err != nil {
		s.metrics.IncrLockConflict("bank_reconciliation")
		return nil, err
	}
	defer release()

	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	// Phase 1: compute. Book balance is derived from current state on
	// every attempt so a retry after a discrepancy sees fresh data.
	unreconciled := false
	txns, err := s.store.QueryTransactions(ctx, domain.TransactionFilter{
		AccountID:  req.AccountID,
		Status:     domain.StatusCompleted,
		DateTo:     &req.StatementDate,
		Reconciled: &unreconciled,
	})
	if err != nil {
		return nil, err
	}

	bookBalance := account.LastReconciledBalance.Add(sumSigned(txns))
	difference := req.StatementBalance.Sub(bookBalance).Abs()

	ids := make([]string, len(txns))
	for i := range txns {
		ids[i] = txns[i].ID
	}

	now := s.clock.Now()
	rec := &domain.BankReconciliation{
		ID:                        uuid.New().String(),
		AccountID:                 req.AccountID,
		StatementDate:             req.StatementDate,
		StatementBalance:          req.StatementBalance,
		BookBalance:               bookBalance,
		Difference:                difference,
		Notes:                     req.Notes,
		ReconciledBy:              req.ReconciledBy,
		MatchedTransactions:       []string{},
		UnmatchedBankTransactions: []string{},
		UnmatchedBookTransactions: []string{},
		CreatedAt:                 now,
	}

	// Phase 2: decide and commit. Either the full batch is marked or
	// none of it.
	if difference.LessThan(domain.ReconciliationEpsilon) {
		rec.Status = domain.ReconciliationCompleted
		rec.MatchedTransactions = ids

		if err := s.store.SetAccountReconciled(ctx, req.AccountID, req.StatementBalance, now); err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			if _, err := s.ledger.Reconcile(ctx, ids, req.ReconciledBy); err != nil {
				return nil, err
			}
		}
	} else {
		rec.Status = domain.ReconciliationDiscrepancy
		rec.UnmatchedBookTransactions = ids
	}

	if err := s.store.InsertReconciliation(ctx, rec); err != nil {
		return nil, err
	}

	s.metrics.IncrReconciliation(rec.Status)
	s.logger.Info("bank reconciliation finished",
		zap.String("reconciliation_id", rec.ID),
		zap.String("account_id", req.AccountID),
		zap.String("status", rec.Status),
		zap.String("book_balance", bookBalance.String()),
		zap.String("statement_balance", req.StatementBalance.String()),
		zap.String("difference", difference.String()),
		zap.Int("transactions", len(ids)),
	)

	return rec, nil
}

// List returns reconciliation history for an account, newest first.
// Both completed and discrepancy records are retained for audit.
func (s *ReconciliationService) List(ctx context.Context, accountID string) ([]domain.BankReconciliation, error) {
	ctx, span := reconTracer.Start(ctx, "ReconciliationService.List")
	defer span.End()

	if accountID != "" {
		if _, err := s.store.GetAccount(ctx, accountID); err != nil {
			return nil, err
		}
	}
	return s.store.ListReconciliations(ctx, accountID)
}
