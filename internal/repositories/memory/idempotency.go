package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
)

type idempotencyKey struct {
	scope string
	key   string
}

// IdempotencyRepository keeps idempotency records in process memory.
type IdempotencyRepository struct {
	mu      sync.Mutex
	records map[idempotencyKey]domain.IdempotencyRecord
}

// NewIdempotencyRepository creates an empty in-memory idempotency store.
func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{records: make(map[idempotencyKey]domain.IdempotencyRecord)}
}

var _ portsrepo.IdempotencyRepository = (*IdempotencyRepository)(nil)

func (r *IdempotencyRepository) InsertRecord(ctx context.Context, record domain.IdempotencyRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := idempotencyKey{record.Scope, record.Key}
	if _, exists := r.records[k]; exists {
		return false, nil
	}
	r.records[k] = record
	return true, nil
}

func (r *IdempotencyRepository) FindRecord(ctx context.Context, scope, key string) (*domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[idempotencyKey{scope, key}]
	if !ok {
		return nil, fmt.Errorf("%w: idempotency key", apperrors.ErrNotFound)
	}
	rec.ResultSnapshot = append([]byte(nil), rec.ResultSnapshot...)
	return &rec, nil
}

func (r *IdempotencyRepository) ReclaimRecord(ctx context.Context, scope, key string, now, lockedUntil time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := idempotencyKey{scope, key}
	rec, ok := r.records[k]
	if !ok || !rec.IsStale(now) {
		return false, nil
	}
	rec.LockedUntil = lockedUntil
	r.records[k] = rec
	return true, nil
}

func (r *IdempotencyRepository) CompleteRecord(ctx context.Context, scope, key string, snapshot []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := idempotencyKey{scope, key}
	rec, ok := r.records[k]
	if !ok {
		return fmt.Errorf("%w: idempotency key", apperrors.ErrNotFound)
	}
	if rec.State == domain.IdempotencyCompleted {
		return nil
	}
	rec.State = domain.IdempotencyCompleted
	rec.ResultSnapshot = append([]byte(nil), snapshot...)
	r.records[k] = rec
	return nil
}

func (r *IdempotencyRepository) DeleteInProgress(ctx context.Context, scope, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := idempotencyKey{scope, key}
	if rec, ok := r.records[k]; ok && rec.State == domain.IdempotencyInProgress {
		delete(r.records, k)
	}
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.records {
		if now.After(rec.ExpiresAt) {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}
