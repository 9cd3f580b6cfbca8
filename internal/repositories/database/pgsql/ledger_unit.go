package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/banking_ledger/internal/models"
	"github.com/SscSPs/banking_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// pgxLedgerUnit runs every primitive on one pgx transaction and remembers which rows it holds.
type pgxLedgerUnit struct {
	tx     pgx.Tx
	locked map[string]domain.Account
	loans  map[string]bool
	txns   map[string]bool // by transaction id
}

func newPgxLedgerUnit(tx pgx.Tx) *pgxLedgerUnit {
	return &pgxLedgerUnit{
		tx:     tx,
		locked: make(map[string]domain.Account),
		loans:  make(map[string]bool),
		txns:   make(map[string]bool),
	}
}

var _ portsrepo.LedgerUnit = (*pgxLedgerUnit)(nil)

// LockAccounts takes FOR UPDATE locks in account_id order so two units touching the same
// accounts always queue instead of deadlocking.
func (u *pgxLedgerUnit) LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error) {
	ids := sortedUnique(accountIDs)
	if len(ids) == 0 {
		return map[string]domain.Account{}, nil
	}

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE;
	`
	rows, err := u.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, mapPgError(err, "failed to lock accounts")
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, mapPgError(err, "failed to scan locked accounts")
	}

	out := make(map[string]domain.Account, len(ms))
	for _, m := range ms {
		acc := mapping.ToDomainAccount(m)
		out[acc.AccountID] = acc
		u.locked[acc.AccountID] = acc
	}
	for _, id := range ids {
		if _, found := out[id]; !found {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, id)
		}
	}
	return out, nil
}

func (u *pgxLedgerUnit) ApplyDelta(ctx context.Context, accountID string, balanceDelta, availableDelta decimal.Decimal) (*domain.Account, error) {
	current, ok := u.locked[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s is not locked in this unit", accountID)
	}
	if _, valid := current.WithDelta(balanceDelta, availableDelta); !valid {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrInsufficientFunds, accountID)
	}

	query := `
		UPDATE accounts
		SET balance = balance + $2, available_balance = available_balance + $3, last_updated_at = NOW()
		WHERE account_id = $1
		RETURNING ` + accountColumns + `;
	`
	rows, err := u.tx.Query(ctx, query, accountID, balanceDelta, availableDelta)
	if err != nil {
		return nil, mapPgError(err, "failed to apply balance delta")
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		return nil, mapPgError(err, fmt.Sprintf("failed to apply balance delta to account %s", accountID))
	}
	acc := mapping.ToDomainAccount(m)
	u.locked[accountID] = acc
	return &acc, nil
}

func (u *pgxLedgerUnit) RecordTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error) {
	m := mapping.ToModelTransaction(txn)
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err := u.tx.Exec(ctx, query,
		m.TransactionID, m.FromAccountID, m.ToAccountID, m.Amount, m.CurrencyCode, m.TransactionType,
		m.Status, m.Reference, m.ExternalReference, m.Fee, m.ReversalOf, m.LoanBalanceAfter, m.Description, m.ProcessedAt,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("failed to record transaction %s", m.Reference))
	}
	u.txns[txn.TransactionID] = true
	return &txn, nil
}

func (u *pgxLedgerUnit) UpdateTransactionStatus(ctx context.Context, update domain.TransactionStatusUpdate) (*domain.Transaction, error) {
	if !u.txns[update.TransactionID] {
		return nil, fmt.Errorf("transaction %s is not locked in this unit", update.TransactionID)
	}
	if !update.From.CanTransitionTo(update.To) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, update.From, update.To)
	}

	query := `
		UPDATE transactions
		SET status = $3,
			external_reference = COALESCE($4, external_reference),
			fee = COALESCE($5, fee),
			processed_at = COALESCE($6, processed_at),
			last_updated_at = $7,
			last_updated_by = $8
		WHERE transaction_id = $1 AND status = $2
		RETURNING ` + transactionColumns + `;
	`
	rows, err := u.tx.Query(ctx, query,
		update.TransactionID, update.From, update.To,
		update.ExternalReference, update.Fee, update.ProcessedAt,
		update.UpdatedAt, update.UpdatedBy,
	)
	if err != nil {
		return nil, mapPgError(err, "failed to update transaction status")
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s is no longer %s", apperrors.ErrInvalidTransition, update.TransactionID, update.From)
		}
		return nil, mapPgError(err, "failed to scan updated transaction")
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}

func (u *pgxLedgerUnit) LockTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 FOR UPDATE;`
	rows, err := u.tx.Query(ctx, query, reference)
	if err != nil {
		return nil, mapPgError(err, "failed to lock transaction")
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrTransferNotFound, reference)
		}
		return nil, mapPgError(err, "failed to scan locked transaction")
	}
	txn := mapping.ToDomainTransaction(m)
	u.txns[txn.TransactionID] = true
	return &txn, nil
}

func (u *pgxLedgerUnit) LockLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1 FOR UPDATE;`
	rows, err := u.tx.Query(ctx, query, loanID)
	if err != nil {
		return nil, mapPgError(err, "failed to lock loan")
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Loan])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrLoanNotFound, loanID)
		}
		return nil, mapPgError(err, "failed to scan locked loan")
	}
	loan := mapping.ToDomainLoan(m)
	u.loans[loan.LoanID] = true
	return &loan, nil
}

func (u *pgxLedgerUnit) UpdateLoan(ctx context.Context, loan domain.Loan) error {
	if !u.loans[loan.LoanID] {
		return fmt.Errorf("loan %s is not locked in this unit", loan.LoanID)
	}
	query := `
		UPDATE loans
		SET outstanding_balance = $2, status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE loan_id = $1;
	`
	_, err := u.tx.Exec(ctx, query, loan.LoanID, loan.OutstandingBalance, loan.Status, loan.LastUpdatedAt, loan.LastUpdatedBy)
	if err != nil {
		return mapPgError(err, fmt.Sprintf("failed to update loan %s", loan.LoanID))
	}
	return nil
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (u *pgxLedgerUnit) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string, now time.Time) (*domain.Account, error) {
	if _, held := u.locked[accountID]; !held {
		return nil, fmt.Errorf("account %s is not locked in this unit", accountID)
	}
	query := `
		UPDATE accounts
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE account_id = $1
		RETURNING ` + accountColumns + `;
	`
	rows, err := u.tx.Query(ctx, query, accountID, string(status), now, userID)
	if err != nil {
		return nil, mapPgError(err, fmt.Sprintf("failed to update status of account %s", accountID))
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, mapPgError(err, "failed to scan updated account")
	}
	acc := mapping.ToDomainAccount(m)
	u.locked[accountID] = acc
	return &acc, nil
}

// CountInFlight sees rows committed by other units; new ones cannot appear while the account is locked.
func (u *pgxLedgerUnit) CountInFlight(ctx context.Context, accountID string) (int, error) {
	if _, held := u.locked[accountID]; !held {
		return 0, fmt.Errorf("account %s is not locked in this unit", accountID)
	}
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE (from_account_id = $1 OR to_account_id = $1)
		  AND status IN ('PENDING', 'PROCESSING');
	`
	var n int
	if err := u.tx.QueryRow(ctx, query, accountID).Scan(&n); err != nil {
		return 0, mapPgError(err, fmt.Sprintf("failed to count in-flight transactions of account %s", accountID))
	}
	return n, nil
}
