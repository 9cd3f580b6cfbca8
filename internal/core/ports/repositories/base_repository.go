package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerUnit is the set of row-locked read-modify-write primitives available inside one
// atomic unit. Nothing done through a unit is visible to others until the unit commits,
// and an error returned from the unit function discards all of it.
type LedgerUnit interface {
	// LockAccounts locks the given accounts in ascending id order, whatever order the
	// caller passes them in. A missing id fails with apperrors.ErrAccountNotFound.
	LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error)

	// ApplyDelta moves balance and available balance of a locked account. A result
	// outside 0 <= available <= balance fails with apperrors.ErrInsufficientFunds.
	ApplyDelta(ctx context.Context, accountID string, balanceDelta, availableDelta decimal.Decimal) (*domain.Account, error)

	// RecordTransaction inserts a new transaction. A reused reference fails with apperrors.ErrDuplicate.
	RecordTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error)

	// UpdateTransactionStatus performs a guarded status transition; the row must still be in update.From.
	UpdateTransactionStatus(ctx context.Context, update domain.TransactionStatusUpdate) (*domain.Transaction, error)

	// LockTransactionByReference locks a transaction row for the rest of the unit.
	LockTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// LockLoan locks a loan row for the rest of the unit.
	LockLoan(ctx context.Context, loanID string) (*domain.Loan, error)

	// UpdateLoan writes the outstanding balance and status of a locked loan.
	UpdateLoan(ctx context.Context, loan domain.Loan) error

	// UpdateAccountStatus moves a locked account to a new lifecycle status.
	UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string, now time.Time) (*domain.Account, error)

	// CountInFlight counts PENDING and PROCESSING transactions that move money into or out of
	// a locked account.
	CountInFlight(ctx context.Context, accountID string) (int, error)
}

// UnitFunc is the body of one atomic unit.
type UnitFunc func(ctx context.Context, unit LedgerUnit) error

// LedgerStore owns accounts, transactions and loans. RunInTx is the only path to
// balance mutation.
type LedgerStore interface {
	AccountReader
	AccountWriter
	TransactionReader
	LoanReader
	LoanWriter

	// RunInTx runs fn as one atomic unit. Lock contention surfaces as
	// apperrors.ErrConcurrencyConflict.
	RunInTx(ctx context.Context, fn UnitFunc) error
}
