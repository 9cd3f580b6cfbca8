package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/banking_ledger/internal/models"
	"github.com/SscSPs/banking_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const idempotencyColumns = `scope, idem_key, request_fingerprint, state, result_snapshot, created_at, expires_at, locked_until`

type PgxIdempotencyRepository struct {
	BaseRepository
}

func newPgxIdempotencyRepository(pool *pgxpool.Pool) *PgxIdempotencyRepository {
	return &PgxIdempotencyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.IdempotencyRepository = (*PgxIdempotencyRepository)(nil)

func (r *PgxIdempotencyRepository) InsertRecord(ctx context.Context, record domain.IdempotencyRecord) (bool, error) {
	m := mapping.ToModelIdempotencyKey(record)
	query := `
		INSERT INTO idempotency_keys (` + idempotencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (scope, idem_key) DO NOTHING;
	`
	ct, err := r.Pool.Exec(ctx, query,
		m.Scope, m.IdemKey, m.RequestFingerprint, m.State, m.ResultSnapshot,
		m.CreatedAt, m.ExpiresAt, m.LockedUntil,
	)
	if err != nil {
		return false, mapPgError(err, "failed to insert idempotency key")
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PgxIdempotencyRepository) FindRecord(ctx context.Context, scope, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE scope = $1 AND idem_key = $2;`
	rows, err := r.Pool.Query(ctx, query, scope, key)
	if err != nil {
		return nil, mapPgError(err, "failed to query idempotency key")
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.IdempotencyKey])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: idempotency key", apperrors.ErrNotFound)
		}
		return nil, mapPgError(err, "failed to scan idempotency key")
	}
	rec := mapping.ToDomainIdempotencyRecord(m)
	return &rec, nil
}

func (r *PgxIdempotencyRepository) ReclaimRecord(ctx context.Context, scope, key string, now, lockedUntil time.Time) (bool, error) {
	query := `
		UPDATE idempotency_keys
		SET locked_until = $4
		WHERE scope = $1 AND idem_key = $2 AND state = 'IN_PROGRESS' AND locked_until < $3;
	`
	ct, err := r.Pool.Exec(ctx, query, scope, key, now, lockedUntil)
	if err != nil {
		return false, mapPgError(err, "failed to reclaim idempotency key")
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PgxIdempotencyRepository) CompleteRecord(ctx context.Context, scope, key string, snapshot []byte) error {
	query := `
		UPDATE idempotency_keys
		SET state = 'COMPLETED', result_snapshot = $3
		WHERE scope = $1 AND idem_key = $2 AND state = 'IN_PROGRESS';
	`
	ct, err := r.Pool.Exec(ctx, query, scope, key, snapshot)
	if err != nil {
		return mapPgError(err, "failed to complete idempotency key")
	}
	if ct.RowsAffected() == 0 {
		// Already completed by a reclaiming retry, or expired and purged.
		if _, err := r.FindRecord(ctx, scope, key); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgxIdempotencyRepository) DeleteInProgress(ctx context.Context, scope, key string) error {
	query := `DELETE FROM idempotency_keys WHERE scope = $1 AND idem_key = $2 AND state = 'IN_PROGRESS';`
	if _, err := r.Pool.Exec(ctx, query, scope, key); err != nil {
		return mapPgError(err, "failed to release idempotency key")
	}
	return nil
}

func (r *PgxIdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ct, err := r.Pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < $1;`, now)
	if err != nil {
		return 0, mapPgError(err, "failed to purge expired idempotency keys")
	}
	return ct.RowsAffected(), nil
}
