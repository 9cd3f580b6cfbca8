package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
)

// IdempotencyRepository is the durable store behind the idempotency manager.
// Records are only ever inserted, completed once, reclaimed when stale, or deleted.
type IdempotencyRepository interface {
	// InsertRecord creates a provisional record. It reports false without error when a
	// record for (scope, key) already exists.
	InsertRecord(ctx context.Context, record domain.IdempotencyRecord) (bool, error)

	// FindRecord returns the record for (scope, key) or apperrors.ErrNotFound.
	FindRecord(ctx context.Context, scope, key string) (*domain.IdempotencyRecord, error)

	// ReclaimRecord extends the lock of a stale in-progress record. It reports false when
	// the record is no longer stale or no longer in progress.
	ReclaimRecord(ctx context.Context, scope, key string, now, lockedUntil time.Time) (bool, error)

	// CompleteRecord stores the outcome snapshot and marks the record completed.
	CompleteRecord(ctx context.Context, scope, key string, snapshot []byte) error

	// DeleteInProgress removes a provisional record so the key can be retried.
	DeleteInProgress(ctx context.Context, scope, key string) error

	// DeleteExpired removes records past their expiry and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
