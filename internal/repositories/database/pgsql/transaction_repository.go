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
	"github.com/SscSPs/banking_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `transaction_id, from_account_id, to_account_id, amount, currency_code, transaction_type,
	status, reference, external_reference, fee, reversal_of, loan_balance_after, description, processed_at,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxTransactionRepository struct {
	BaseRepository
}

func newPgxTransactionRepository(pool *pgxpool.Pool) *PgxTransactionRepository {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionReader = (*PgxTransactionRepository)(nil)

func (r *PgxTransactionRepository) FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1;`
	rows, err := r.Pool.Query(ctx, query, reference)
	if err != nil {
		return nil, mapPgError(err, "failed to query transaction")
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrTransferNotFound, reference)
		}
		return nil, mapPgError(err, "failed to scan transaction")
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}

// ListTransactionsByAccountID pages newest first using a (created_at, transaction_id) keyset.
func (r *PgxTransactionRepository) ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	limit = pagination.ClampLimit(limit)

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE (from_account_id = $1 OR to_account_id = $1)`
	args := []any{accountID}

	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(apperrors.CodeValidation, "invalid nextToken", fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		}
		query += ` AND (created_at, transaction_id) < ($2, $3)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, transaction_id DESC LIMIT %d;`, limit+1)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to list transactions")
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		return nil, nil, mapPgError(err, "failed to scan transactions")
	}

	var next *string
	if len(ms) > limit {
		ms = ms[:limit]
		last := ms[len(ms)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		next = &token
	}
	return mapping.ToDomainTransactionSlice(ms), next, nil
}

func (r *PgxTransactionRepository) ListTransactionsByStatus(ctx context.Context, status domain.TransactionStatus, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND last_updated_at < $2
		ORDER BY last_updated_at ASC
		LIMIT $3;`
	rows, err := r.Pool.Query(ctx, query, status, olderThan, limit)
	if err != nil {
		return nil, mapPgError(err, "failed to list transactions by status")
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		return nil, mapPgError(err, "failed to scan transactions")
	}
	return mapping.ToDomainTransactionSlice(ms), nil
}
