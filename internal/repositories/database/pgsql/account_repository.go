package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/banking_ledger/internal/models"
	"github.com/SscSPs/banking_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `account_id, owner_id, account_number, balance, available_balance, currency_code, status,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var (
	_ portsrepo.AccountReader = (*PgxAccountRepository)(nil)
	_ portsrepo.AccountWriter = (*PgxAccountRepository)(nil)
)

func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.AccountID,
		m.OwnerID,
		m.AccountNumber,
		m.Balance,
		m.AvailableBalance,
		m.CurrencyCode,
		m.Status,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to save account %s", m.AccountID))
	}
	return nil
}

func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	return r.findOne(ctx, query, accountID)
}

func (r *PgxAccountRepository) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1;`
	return r.findOne(ctx, query, accountNumber)
}

func (r *PgxAccountRepository) findOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	rows, err := r.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, mapPgError(err, "failed to query account")
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrAccountNotFound, arg)
		}
		return nil, mapPgError(err, "failed to scan account")
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

func (r *PgxAccountRepository) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at ASC;`
	rows, err := r.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, mapPgError(err, "failed to list accounts")
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, mapPgError(err, "failed to scan accounts")
	}
	return mapping.ToDomainAccountSlice(ms), nil
}
