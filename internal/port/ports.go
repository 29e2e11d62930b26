// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenpos/finengine/internal/domain"
)

// Clock supplies "now" so report dates and reconciliation stamps are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// AccountDirectory resolves account ids to account metadata. Backed by
// the in-memory store or by the external account/branch directory
// service.
type AccountDirectory interface {
	GetAccount(ctx context.Context, accountID string) (*domain.BankAccount, error)
	GetPrimaryAccount(ctx context.Context) (*domain.BankAccount, error)
	ListAccounts(ctx context.Context) ([]domain.BankAccount, error)
}

// LedgerStore defines all persistence operations for the engine.
// Implementations must keep the reconciled flag monotone and the
// primary-account uniqueness at write time.
type LedgerStore interface {
	AccountDirectory

	// Transactions
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error
	QueryTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	// MarkReconciled stamps the given ids and returns how many were
	// newly marked. Unknown or already-reconciled ids are skipped.
	MarkReconciled(ctx context.Context, ids []string, reconciledBy string, at time.Time) (int, error)

	// Accounts
	SetAccountReconciled(ctx context.Context, accountID string, balance decimal.Decimal, at time.Time) error

	// Reconciliations
	InsertReconciliation(ctx context.Context, rec *domain.BankReconciliation) error
	ListReconciliations(ctx context.Context, accountID string) ([]domain.BankReconciliation, error)

	// End-of-day reports
	InsertEndOfDayReport(ctx context.Context, report *domain.EndOfDayReport) error
	GetEndOfDayReport(ctx context.Context, reportID string) (*domain.EndOfDayReport, error)
	UpdateEndOfDayReport(ctx context.Context, report *domain.EndOfDayReport) error
	ListEndOfDayReports(ctx context.Context, from, to *time.Time) ([]domain.EndOfDayReport, error)
}
