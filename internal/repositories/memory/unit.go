package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// unit stages locked rows and new transactions until commit.
type unit struct {
	store *Store

	accounts map[string]domain.Account
	loans    map[string]domain.Loan
	txns     map[string]domain.Transaction // by reference
	newRefs  []string
	held     []rowLock
}

var _ portsrepo.LedgerUnit = (*unit)(nil)

func (u *unit) LockAccounts(ctx context.Context, accountIDs ...string) (map[string]domain.Account, error) {
	ids := sortedUnique(accountIDs)
	for _, id := range ids {
		if _, held := u.accounts[id]; held {
			continue
		}
		u.store.mu.RLock()
		lock, ok := u.store.accountLocks[id]
		u.store.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, id)
		}
		if err := lock.acquire(ctx, u.store.lockTimeout); err != nil {
			return nil, err
		}
		u.held = append(u.held, lock)

		u.store.mu.RLock()
		u.accounts[id] = u.store.accounts[id]
		u.store.mu.RUnlock()
	}

	out := make(map[string]domain.Account, len(ids))
	for _, id := range ids {
		out[id] = u.accounts[id]
	}
	return out, nil
}

func (u *unit) ApplyDelta(ctx context.Context, accountID string, balanceDelta, availableDelta decimal.Decimal) (*domain.Account, error) {
	acc, ok := u.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s is not locked in this unit", accountID)
	}
	next, valid := acc.WithDelta(balanceDelta, availableDelta)
	if !valid {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrInsufficientFunds, accountID)
	}
	next.LastUpdatedAt = u.store.now()
	u.accounts[accountID] = next
	return &next, nil
}

func (u *unit) RecordTransaction(ctx context.Context, txn domain.Transaction) (*domain.Transaction, error) {
	u.store.mu.Lock()
	_, committed := u.store.transactions[txn.Reference]
	_, reserved := u.store.reservedRefs[txn.Reference]
	if committed || reserved {
		u.store.mu.Unlock()
		return nil, fmt.Errorf("%w: transaction reference %s", apperrors.ErrDuplicate, txn.Reference)
	}
	u.store.reservedRefs[txn.Reference] = struct{}{}
	u.store.mu.Unlock()

	u.newRefs = append(u.newRefs, txn.Reference)
	u.txns[txn.Reference] = txn
	return &txn, nil
}

func (u *unit) UpdateTransactionStatus(ctx context.Context, update domain.TransactionStatusUpdate) (*domain.Transaction, error) {
	var (
		ref string
		txn domain.Transaction
	)
	for r, staged := range u.txns {
		if staged.TransactionID == update.TransactionID {
			ref, txn = r, staged
			break
		}
	}
	if ref == "" {
		return nil, fmt.Errorf("transaction %s is not locked in this unit", update.TransactionID)
	}
	if txn.Status != update.From || !update.From.CanTransitionTo(update.To) {
		return nil, fmt.Errorf("%w: %s -> %s (current %s)", apperrors.ErrInvalidTransition, update.From, update.To, txn.Status)
	}

	txn.Status = update.To
	if update.ExternalReference != nil {
		txn.ExternalReference = update.ExternalReference
	}
	if update.Fee != nil {
		txn.Fee = update.Fee
	}
	if update.ProcessedAt != nil {
		txn.ProcessedAt = update.ProcessedAt
	}
	txn.LastUpdatedAt = update.UpdatedAt
	txn.LastUpdatedBy = update.UpdatedBy
	u.txns[ref] = txn
	return &txn, nil
}

func (u *unit) LockTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	if txn, held := u.txns[reference]; held {
		return &txn, nil
	}
	u.store.mu.RLock()
	lock, ok := u.store.txnLocks[reference]
	u.store.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTransferNotFound, reference)
	}
	if err := lock.acquire(ctx, u.store.lockTimeout); err != nil {
		return nil, err
	}
	u.held = append(u.held, lock)

	u.store.mu.RLock()
	txn := u.store.transactions[reference]
	u.store.mu.RUnlock()
	u.txns[reference] = txn
	return &txn, nil
}

func (u *unit) LockLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	if loan, held := u.loans[loanID]; held {
		return &loan, nil
	}
	u.store.mu.RLock()
	lock, ok := u.store.loanLocks[loanID]
	u.store.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrLoanNotFound, loanID)
	}
	if err := lock.acquire(ctx, u.store.lockTimeout); err != nil {
		return nil, err
	}
	u.held = append(u.held, lock)

	u.store.mu.RLock()
	loan := u.store.loans[loanID]
	u.store.mu.RUnlock()
	u.loans[loanID] = loan
	return &loan, nil
}

func (u *unit) UpdateLoan(ctx context.Context, loan domain.Loan) error {
	if _, held := u.loans[loan.LoanID]; !held {
		return fmt.Errorf("loan %s is not locked in this unit", loan.LoanID)
	}
	if loan.OutstandingBalance.IsNegative() {
		return fmt.Errorf("%w: outstanding balance cannot be negative", apperrors.ErrValidation)
	}
	u.loans[loan.LoanID] = loan
	return nil
}

func (u *unit) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, userID string, now time.Time) (*domain.Account, error) {
	acc, ok := u.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s is not locked in this unit", accountID)
	}
	acc.Status = status
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	u.accounts[accountID] = acc
	return &acc, nil
}

func (u *unit) CountInFlight(ctx context.Context, accountID string) (int, error) {
	if _, held := u.accounts[accountID]; !held {
		return 0, fmt.Errorf("account %s is not locked in this unit", accountID)
	}
	inFlight := func(t domain.Transaction) bool {
		return t.Touches(accountID) && (t.Status == domain.StatusPending || t.Status == domain.StatusProcessing)
	}

	n := 0
	for _, txn := range u.txns {
		if inFlight(txn) {
			n++
		}
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	for ref, txn := range u.store.transactions {
		if _, staged := u.txns[ref]; staged {
			continue
		}
		if inFlight(txn) {
			n++
		}
	}
	return n, nil
}

func (u *unit) commit() {
	u.store.mu.Lock()
	for id, acc := range u.accounts {
		u.store.accounts[id] = acc
	}
	for id, loan := range u.loans {
		u.store.loans[id] = loan
	}
	for ref, txn := range u.txns {
		u.store.transactions[ref] = txn
	}
	for _, ref := range u.newRefs {
		u.store.txnLocks[ref] = newRowLock()
		delete(u.store.reservedRefs, ref)
	}
	u.store.mu.Unlock()
	u.releaseAll()
}

func (u *unit) rollback() {
	u.store.mu.Lock()
	for _, ref := range u.newRefs {
		delete(u.store.reservedRefs, ref)
	}
	u.store.mu.Unlock()
	u.releaseAll()
}

func (u *unit) releaseAll() {
	for i := len(u.held) - 1; i >= 0; i-- {
		u.held[i].release()
	}
	u.held = nil
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
