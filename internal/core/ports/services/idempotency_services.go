package services

import (
	"context"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
)

// IdempotencySvc deduplicates mutating requests by client supplied key.
type IdempotencySvc interface {
	// Begin claims (scope, key) for fingerprint. It returns a Fresh outcome when the caller now
	// owns the key, a Duplicate outcome with the stored snapshot, or
	// apperrors.ErrIdempotencyKeyConflict when the key was used for a different request.
	Begin(ctx context.Context, scope, key, fingerprint string) (*domain.IdempotencyOutcome, error)

	// Complete stores the terminal outcome for a key claimed by Begin.
	Complete(ctx context.Context, scope, key string, snapshot domain.ResultSnapshot) error

	// Release drops a claim whose operation failed retryably so the key can be used again.
	Release(ctx context.Context, scope, key string) error

	// PurgeExpired deletes records past their retention window.
	PurgeExpired(ctx context.Context) (int64, error)
}
