package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/banking_ledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

const defaultLockTimeout = 3 * time.Second

// rowLock is a context aware exclusive lock on one row.
type rowLock chan struct{}

func newRowLock() rowLock { return make(rowLock, 1) }

func (l rowLock) acquire(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", apperrors.ErrConcurrencyConflict, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: lock wait exceeded %s", apperrors.ErrConcurrencyConflict, timeout)
	}
}

func (l rowLock) release() { <-l }

// Store is an in-process LedgerStore. Units lock rows the same way the SQL store does and
// stage every change until commit, so a failed unit leaves nothing behind.
type Store struct {
	mu          sync.RWMutex
	lockTimeout time.Duration
	now         func() time.Time

	accounts        map[string]domain.Account
	accountLocks    map[string]rowLock
	accountByNumber map[string]string

	transactions map[string]domain.Transaction // by reference
	txnLocks     map[string]rowLock
	reservedRefs map[string]struct{}

	loans     map[string]domain.Loan
	loanLocks map[string]rowLock
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long a unit waits for a row lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithClock replaces the time source used for update stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty in-memory ledger store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		lockTimeout:     defaultLockTimeout,
		now:             time.Now,
		accounts:        make(map[string]domain.Account),
		accountLocks:    make(map[string]rowLock),
		accountByNumber: make(map[string]string),
		transactions:    make(map[string]domain.Transaction),
		txnLocks:        make(map[string]rowLock),
		reservedRefs:    make(map[string]struct{}),
		loans:           make(map[string]domain.Loan),
		loanLocks:       make(map[string]rowLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// RunInTx runs fn as one atomic unit.
func (s *Store) RunInTx(ctx context.Context, fn portsrepo.UnitFunc) (err error) {
	u := &unit{
		store:    s,
		accounts: make(map[string]domain.Account),
		loans:    make(map[string]domain.Loan),
		txns:     make(map[string]domain.Transaction),
	}
	defer func() {
		if p := recover(); p != nil {
			u.rollback()
			panic(p)
		}
		if err != nil {
			u.rollback()
			return
		}
		u.commit()
	}()
	return fn(ctx, u)
}

// --- Accounts ---

func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
	}
	return &acc, nil
}

func (s *Store) FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.accountByNumber[accountNumber]
	if !ok {
		return nil, fmt.Errorf("%w: number %s", apperrors.ErrAccountNotFound, accountNumber)
	}
	acc := s.accounts[id]
	return &acc, nil
}

func (s *Store) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Account{}
	for _, acc := range s.accounts {
		if acc.OwnerID == ownerID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveAccount(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, account.AccountID)
	}
	if _, exists := s.accountByNumber[account.AccountNumber]; exists {
		return fmt.Errorf("%w: account number %s already exists", apperrors.ErrDuplicate, account.AccountNumber)
	}
	if _, ok := account.WithDelta(decimal.Zero, decimal.Zero); !ok {
		return fmt.Errorf("%w: opening balances out of range", apperrors.ErrValidation)
	}
	s.accounts[account.AccountID] = account
	s.accountLocks[account.AccountID] = newRowLock()
	s.accountByNumber[account.AccountNumber] = account.AccountID
	return nil
}

// --- Transactions ---

func (s *Store) FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.transactions[reference]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTransferNotFound, reference)
	}
	return &txn, nil
}

func (s *Store) ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	limit = pagination.ClampLimit(limit)
	var cursor *pagination.Cursor
	if nextToken != nil && *nextToken != "" {
		c, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(apperrors.CodeValidation, "invalid nextToken", fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		}
		cursor = &c
	}

	s.mu.RLock()
	matching := make([]domain.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.Touches(accountID) {
			matching = append(matching, txn)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matching, func(i, j int) bool {
		if matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].TransactionID > matching[j].TransactionID
		}
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})

	page := make([]domain.Transaction, 0, limit)
	for _, txn := range matching {
		if cursor != nil && !cursor.IsAfter(txn.CreatedAt, txn.TransactionID) {
			continue
		}
		if len(page) == limit+1 {
			break
		}
		page = append(page, txn)
	}

	var next *string
	if len(page) > limit {
		page = page[:limit]
		last := page[len(page)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		next = &token
	}
	return page, next, nil
}

func (s *Store) ListTransactionsByStatus(ctx context.Context, status domain.TransactionStatus, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	out := make([]domain.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.Status == status && txn.LastUpdatedAt.Before(olderThan) {
			out = append(out, txn)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdatedAt.Before(out[j].LastUpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Loans ---

func (s *Store) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loan, ok := s.loans[loanID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrLoanNotFound, loanID)
	}
	return &loan, nil
}

func (s *Store) ListLoansByOwner(ctx context.Context, ownerID string) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Loan{}
	for _, loan := range s.loans {
		if loan.OwnerID == ownerID {
			out = append(out, loan)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveLoan(ctx context.Context, loan domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.loans[loan.LoanID]; exists {
		return fmt.Errorf("%w: loan with ID %s already exists", apperrors.ErrDuplicate, loan.LoanID)
	}
	s.loans[loan.LoanID] = loan
	s.loanLocks[loan.LoanID] = newRowLock()
	return nil
}
