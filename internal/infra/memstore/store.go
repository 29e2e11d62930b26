// Package memstore provides an in-memory LedgerStore implementation.
// In production this would be backed by a real database; the engine
// only depends on the port.LedgerStore interface.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenpos/finengine/internal/domain"
)

// Store is a thread-safe in-memory ledger store. Transactions keep an
// insertion sequence so equal-date ordering is stable.
type Store struct {
	mu              sync.RWMutex
	seq             int
	transactions    []storedTransaction
	txnIndex        map[string]int // id -> slice position
	accounts        map[string]*domain.BankAccount
	reconciliations []domain.BankReconciliation
	eodReports      map[string]*domain.EndOfDayReport
	eodOrder        []string
}

type storedTransaction struct {
	txn domain.Transaction
	seq int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		txnIndex:   make(map[string]int),
		accounts:   make(map[string]*domain.BankAccount),
		eodReports: make(map[string]*domain.EndOfDayReport),
	}
}

// ============================================================
// Accounts
// ============================================================

// SeedAccount registers an account. Enforces the single-primary
// invariant: seeding a primary account demotes any existing primary.
func (s *Store) SeedAccount(acct domain.BankAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.IsPrimary {
		for _, existing := range s.accounts {
			existing.IsPrimary = false
		}
	}
	cp := acct
	s.accounts[acct.ID] = &cp
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	cp := *acct
	return &cp, nil
}

func (s *Store) GetPrimaryAccount(ctx context.Context) (*domain.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acct := range s.accounts {
		if acct.IsPrimary && acct.IsActive {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "account", ID: "primary"}
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BankAccount, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, *acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetAccountReconciled(ctx context.Context, accountID string, balance decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	acct.CurrentBalance = balance
	acct.AvailableBalance = balance
	acct.LastReconciledBalance = balance
	stamp := at
	acct.LastReconciledAt = &stamp
	return nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txnIndex[txn.ID]; exists {
		return &domain.ErrConflict{Message: "transaction id already exists: " + txn.ID}
	}
	s.seq++
	s.transactions = append(s.transactions, storedTransaction{txn: *txn, seq: s.seq})
	s.txnIndex[txn.ID] = len(s.transactions) - 1
	return nil
}

// QueryTransactions applies the conjunctive filter and returns results
// ordered by date descending, insertion order as tiebreak.
func (s *Store) QueryTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]storedTransaction, 0, len(s.transactions))
	for _, st := range s.transactions {
		if matches(&st.txn, &filter) {
			matched = append(matched, st)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].txn.Date.Equal(matched[j].txn.Date) {
			return matched[i].txn.Date.After(matched[j].txn.Date)
		}
		return matched[i].seq < matched[j].seq
	})

	out := make([]domain.Transaction, len(matched))
	for i, st := range matched {
		out[i] = st.txn
	}
	return out, nil
}

func matches(t *domain.Transaction, f *domain.TransactionFilter) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.PaymentMethod != "" && t.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.DateFrom != nil && t.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.Date.After(*f.DateTo) {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if f.Reconciled != nil && t.IsReconciled != *f.Reconciled {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Description), needle) &&
			!strings.Contains(strings.ToLower(t.Reference), needle) {
			return false
		}
	}
	return true
}

// MarkReconciled stamps each found, not-yet-reconciled transaction.
// The flag is monotone: already-reconciled ids are left untouched and
// not counted. Unknown ids are skipped silently.
func (s *Store) MarkReconciled(ctx context.Context, ids []string, reconciledBy string, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, id := range ids {
		pos, ok := s.txnIndex[id]
		if !ok {
			continue
		}
		txn := &s.transactions[pos].txn
		if txn.IsReconciled {
			continue
		}
		txn.IsReconciled = true
		stamp := at
		txn.ReconciledAt = &stamp
		txn.ReconciledBy = reconciledBy
		count++
	}
	return count, nil
}

// ============================================================
// Reconciliations
// ============================================================

func (s *Store) InsertReconciliation(ctx context.Context, rec *domain.BankReconciliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconciliations = append(s.reconciliations, *rec)
	return nil
}

func (s *Store) ListReconciliations(ctx context.Context, accountID string) ([]domain.BankReconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BankReconciliation, 0)
	for _, rec := range s.reconciliations {
		if accountID == "" || rec.AccountID == accountID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ============================================================
// End-of-day reports
// ============================================================

func (s *Store) InsertEndOfDayReport(ctx context.Context, report *domain.EndOfDayReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.eodReports[report.ID]; exists {
		return &domain.ErrConflict{Message: "end-of-day report id already exists: " + report.ID}
	}
	cp := *report
	s.eodReports[report.ID] = &cp
	s.eodOrder = append(s.eodOrder, report.ID)
	return nil
}

func (s *Store) GetEndOfDayReport(ctx context.Context, reportID string) (*domain.EndOfDayReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.eodReports[reportID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "end_of_day_report", ID: reportID}
	}
	cp := *report
	return &cp, nil
}

func (s *Store) UpdateEndOfDayReport(ctx context.Context, report *domain.EndOfDayReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eodReports[report.ID]; !ok {
		return &domain.ErrNotFound{Resource: "end_of_day_report", ID: report.ID}
	}
	cp := *report
	s.eodReports[report.ID] = &cp
	return nil
}

func (s *Store) ListEndOfDayReports(ctx context.Context, from, to *time.Time) ([]domain.EndOfDayReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EndOfDayReport, 0, len(s.eodOrder))
	for _, id := range s.eodOrder {
		report := s.eodReports[id]
		if from != nil && report.ReportDate.Before(*from) {
			continue
		}
		if to != nil && report.ReportDate.After(*to) {
			continue
		}
		out = append(out, *report)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReportDate.After(out[j].ReportDate) })
	return out, nil
}
