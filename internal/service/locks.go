package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lumenpos/finengine/internal/domain"
)

// AccountLocks serializes mutating operations per account. Two
// reconciliations against the same account must not interleave, or the
// book-balance computation can read a partially-updated transaction
// set. Cross-account operations proceed in parallel.
type AccountLocks struct {
	mu      sync.Mutex
	sems    map[string]*semaphore.Weighted
	maxWait time.Duration
}

func NewAccountLocks(maxWait time.Duration) *AccountLocks {
	return &AccountLocks{
		sems:    make(map[string]*semaphore.Weighted),
		maxWait: maxWait,
	}
}

func (l *AccountLocks) sem(key string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sems[key]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.sems[key] = s
	}
	return s
}

// acquire blocks up to maxWait for the account's slot. Failure to
// acquire within the bound surfaces as ErrConcurrencyConflict so the
// caller can retry with backoff.
func (l *AccountLocks) acquire(ctx context.Context, key string) (release func(), err error) {
	s := l.sem(key)

	ctx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := s.Acquire(ctx, 1); err != nil {
		return nil, &domain.ErrConcurrencyConflict{AccountID: key}
	}
	return func() { s.Release(1) }, nil
}
