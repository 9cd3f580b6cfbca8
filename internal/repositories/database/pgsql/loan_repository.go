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

const loanColumns = `loan_id, owner_id, account_id, principal_amount, interest_rate, term_months,
	outstanding_balance, currency_code, status, created_at, created_by, last_updated_at, last_updated_by`

type PgxLoanRepository struct {
	BaseRepository
}

func newPgxLoanRepository(pool *pgxpool.Pool) *PgxLoanRepository {
	return &PgxLoanRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var (
	_ portsrepo.LoanReader = (*PgxLoanRepository)(nil)
	_ portsrepo.LoanWriter = (*PgxLoanRepository)(nil)
)

func (r *PgxLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	m := mapping.ToModelLoan(loan)
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.LoanID, m.OwnerID, m.AccountID, m.PrincipalAmount, m.InterestRate, m.TermMonths,
		m.OutstandingBalance, m.CurrencyCode, m.Status,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to save loan %s", m.LoanID))
	}
	return nil
}

func (r *PgxLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1;`
	rows, err := r.Pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, mapPgError(err, "failed to query loan")
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Loan])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrLoanNotFound, loanID)
		}
		return nil, mapPgError(err, "failed to scan loan")
	}
	loan := mapping.ToDomainLoan(m)
	return &loan, nil
}

func (r *PgxLoanRepository) ListLoansByOwner(ctx context.Context, ownerID string) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE owner_id = $1 ORDER BY created_at ASC;`
	rows, err := r.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, mapPgError(err, "failed to list loans")
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Loan])
	if err != nil {
		return nil, mapPgError(err, "failed to scan loans")
	}
	return mapping.ToDomainLoanSlice(ms), nil
}
