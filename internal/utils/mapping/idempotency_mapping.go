package mapping

import (
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/SscSPs/banking_ledger/internal/models"
)

// ToModelIdempotencyKey converts a domain IdempotencyRecord to its row shape.
func ToModelIdempotencyKey(d domain.IdempotencyRecord) models.IdempotencyKey {
	return models.IdempotencyKey{
		Scope:              d.Scope,
		IdemKey:            d.Key,
		RequestFingerprint: d.RequestFingerprint,
		State:              string(d.State),
		ResultSnapshot:     d.ResultSnapshot,
		CreatedAt:          d.CreatedAt,
		ExpiresAt:          d.ExpiresAt,
		LockedUntil:        d.LockedUntil,
	}
}

// ToDomainIdempotencyRecord converts an idempotency_keys row to a domain record.
func ToDomainIdempotencyRecord(m models.IdempotencyKey) domain.IdempotencyRecord {
	return domain.IdempotencyRecord{
		Scope:              m.Scope,
		Key:                m.IdemKey,
		RequestFingerprint: m.RequestFingerprint,
		State:              domain.IdempotencyState(m.State),
		ResultSnapshot:     m.ResultSnapshot,
		CreatedAt:          m.CreatedAt,
		ExpiresAt:          m.ExpiresAt,
		LockedUntil:        m.LockedUntil,
	}
}
