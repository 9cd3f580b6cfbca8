package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, s *Store, id, number, balance string) {
	t.Helper()
	bal := decimal.RequireFromString(balance)
	require.NoError(t, s.SaveAccount(context.Background(), domain.Account{
		AccountID:        id,
		OwnerID:          "owner-" + id,
		AccountNumber:    number,
		Balance:          bal,
		AvailableBalance: bal,
		CurrencyCode:     "USD",
		Status:           domain.AccountActive,
		AuditFields:      domain.NewAuditFields("test", time.Now()),
	}))
}

func newTxn(ref string, amount string, from, to string) domain.Transaction {
	return domain.Transaction{
		TransactionID: "id-" + ref,
		FromAccountID: &from,
		ToAccountID:   &to,
		Amount:        decimal.RequireFromString(amount),
		CurrencyCode:  "USD",
		Type:          domain.TransactionTransfer,
		Status:        domain.StatusPending,
		Reference:     ref,
		AuditFields:   domain.NewAuditFields("test", time.Now()),
	}
}

func TestStore_RunInTx_CommitsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "a", "1001", "100.00")
	seedAccount(t, s, "b", "1002", "0.00")

	err := s.RunInTx(ctx, func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.LockAccounts(ctx, "b", "a")
		require.NoError(t, err)
		_, err = u.RecordTransaction(ctx, newTxn("R1", "40.00", "a", "b"))
		require.NoError(t, err)
		_, err = u.ApplyDelta(ctx, "a", decimal.RequireFromString("-40.00"), decimal.RequireFromString("-40.00"))
		require.NoError(t, err)
		return errors.New("credit side blew up")
	})
	require.Error(t, err)

	a, _ := s.FindAccountByID(ctx, "a")
	assert.True(t, a.Balance.Equal(decimal.RequireFromString("100.00")), "debit must not survive a failed unit")
	_, err = s.FindTransactionByReference(ctx, "R1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// The reference is free again after rollback.
	err = s.RunInTx(ctx, func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.RecordTransaction(ctx, newTxn("R1", "40.00", "a", "b"))
		return err
	})
	assert.NoError(t, err)
}

func TestStore_LockAccounts_MissingAccount(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a", "1001", "10.00")

	err := s.RunInTx(context.Background(), func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.LockAccounts(ctx, "a", "ghost")
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)

	// Locks taken before the failure are released.
	err = s.RunInTx(context.Background(), func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.LockAccounts(ctx, "a")
		return err
	})
	assert.NoError(t, err)
}

func TestStore_ApplyDelta_InsufficientFunds(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a", "1001", "10.00")

	err := s.RunInTx(context.Background(), func(ctx context.Context, u portsrepo.LedgerUnit) error {
		if _, err := u.LockAccounts(ctx, "a"); err != nil {
			return err
		}
		_, err := u.ApplyDelta(ctx, "a", decimal.RequireFromString("-10.01"), decimal.RequireFromString("-10.01"))
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
}

func TestStore_ApplyDelta_RequiresLock(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a", "1001", "10.00")

	err := s.RunInTx(context.Background(), func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.ApplyDelta(ctx, "a", decimal.NewFromInt(1), decimal.NewFromInt(1))
		return err
	})
	assert.Error(t, err)
}

func TestStore_RecordTransaction_DuplicateReference(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a", "1001", "10.00")
	seedAccount(t, s, "b", "1002", "10.00")

	run := func() error {
		return s.RunInTx(context.Background(), func(ctx context.Context, u portsrepo.LedgerUnit) error {
			_, err := u.RecordTransaction(ctx, newTxn("DUP", "1.00", "a", "b"))
			return err
		})
	}
	require.NoError(t, run())
	assert.ErrorIs(t, run(), apperrors.ErrDuplicate)
}

func TestStore_UpdateTransactionStatus_Guarded(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "a", "1001", "10.00")
	seedAccount(t, s, "b", "1002", "10.00")
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.RecordTransaction(ctx, newTxn("R", "1.00", "a", "b"))
		return err
	}))

	err := s.RunInTx(ctx, func(ctx context.Context, u portsrepo.LedgerUnit) error {
		txn, err := u.LockTransactionByReference(ctx, "R")
		if err != nil {
			return err
		}
		ext := "EXT-1"
		_, err = u.UpdateTransactionStatus(ctx, domain.TransactionStatusUpdate{
			TransactionID: txn.TransactionID, From: domain.StatusPending, To: domain.StatusProcessing,
			ExternalReference: &ext, UpdatedAt: time.Now(), UpdatedBy: "system",
		})
		return err
	})
	require.NoError(t, err)

	txn, err := s.FindTransactionByReference(ctx, "R")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, txn.Status)
	assert.Equal(t, "EXT-1", *txn.ExternalReference)

	err = s.RunInTx(ctx, func(ctx context.Context, u portsrepo.LedgerUnit) error {
		txn, err := u.LockTransactionByReference(ctx, "R")
		if err != nil {
			return err
		}
		_, err = u.UpdateTransactionStatus(ctx, domain.TransactionStatusUpdate{
			TransactionID: txn.TransactionID, From: domain.StatusPending, To: domain.StatusCompleted,
		})
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestStore_OppositeDirectionTransfersDoNotDeadlock(t *testing.T) {
	s := NewStore(WithLockTimeout(2 * time.Second))
	seedAccount(t, s, "a", "1001", "1000.00")
	seedAccount(t, s, "b", "1002", "1000.00")

	move := func(from, to string) error {
		return s.RunInTx(context.Background(), func(ctx context.Context, u portsrepo.LedgerUnit) error {
			if _, err := u.LockAccounts(ctx, from, to); err != nil {
				return err
			}
			one := decimal.RequireFromString("1.00")
			if _, err := u.ApplyDelta(ctx, from, one.Neg(), one.Neg()); err != nil {
				return err
			}
			_, err := u.ApplyDelta(ctx, to, one, one)
			return err
		})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); errs <- move("a", "b") }()
		go func() { defer wg.Done(); errs <- move("b", "a") }()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	a, _ := s.FindAccountByID(context.Background(), "a")
	b, _ := s.FindAccountByID(context.Background(), "b")
	assert.True(t, a.Balance.Add(b.Balance).Equal(decimal.RequireFromString("2000.00")))
}

func TestStore_LockTimeoutIsConcurrencyConflict(t *testing.T) {
	s := NewStore(WithLockTimeout(20 * time.Millisecond))
	seedAccount(t, s, "a", "1001", "10.00")

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.RunInTx(context.Background(), func(ctx context.Context, u portsrepo.LedgerUnit) error {
			_, err := u.LockAccounts(ctx, "a")
			close(holding)
			<-done
			return err
		})
	}()
	<-holding

	err := s.RunInTx(context.Background(), func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.LockAccounts(ctx, "a")
		return err
	})
	close(done)
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
}

func TestStore_ListTransactionsByAccountID_Paginates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "a", "1001", "10.00")
	seedAccount(t, s, "b", "1002", "10.00")
	seedAccount(t, s, "c", "1003", "10.00")

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, u portsrepo.LedgerUnit) error {
		for i, ref := range []string{"T1", "T2", "T3", "T4", "T5"} {
			txn := newTxn(ref, "1.00", "a", "b")
			txn.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			if _, err := u.RecordTransaction(ctx, txn); err != nil {
				return err
			}
		}
		_, err := u.RecordTransaction(ctx, newTxn("OTHER", "1.00", "b", "c"))
		return err
	}))

	page1, next, err := s.ListTransactionsByAccountID(ctx, "a", 2, nil)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "T5", page1[0].Reference)
	assert.Equal(t, "T4", page1[1].Reference)
	require.NotNil(t, next)

	page2, next, err := s.ListTransactionsByAccountID(ctx, "a", 2, next)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "T3", page2[0].Reference)

	page3, next, err := s.ListTransactionsByAccountID(ctx, "a", 2, next)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "T1", page3[0].Reference)
	assert.Nil(t, next)

	bad := "%%%"
	_, _, err = s.ListTransactionsByAccountID(ctx, "a", 2, &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestStore_SaveAccount_DuplicateNumber(t *testing.T) {
	s := NewStore()
	seedAccount(t, s, "a", "1001", "0")
	err := s.SaveAccount(context.Background(), domain.Account{AccountID: "b", AccountNumber: "1001", Status: domain.AccountActive})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestIdempotencyRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewIdempotencyRepository()
	now := time.Now()
	rec := domain.IdempotencyRecord{
		Scope: "u:POST /transfers", Key: "K1", RequestFingerprint: "fp",
		State: domain.IdempotencyInProgress, CreatedAt: now,
		ExpiresAt: now.Add(time.Hour), LockedUntil: now.Add(time.Minute),
	}

	inserted, err := r.InsertRecord(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = r.InsertRecord(ctx, rec)
	require.NoError(t, err)
	assert.False(t, inserted)

	ok, err := r.ReclaimRecord(ctx, rec.Scope, rec.Key, now, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "lock not yet stale")

	ok, err = r.ReclaimRecord(ctx, rec.Scope, rec.Key, now.Add(2*time.Minute), now.Add(4*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.CompleteRecord(ctx, rec.Scope, rec.Key, []byte(`{"transaction":null}`)))
	require.NoError(t, r.DeleteInProgress(ctx, rec.Scope, rec.Key))
	got, err := r.FindRecord(ctx, rec.Scope, rec.Key)
	require.NoError(t, err, "completed records survive DeleteInProgress")
	assert.Equal(t, domain.IdempotencyCompleted, got.State)

	n, err := r.DeleteExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = r.FindRecord(ctx, rec.Scope, rec.Key)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUnit_AccountStatusAndInFlight(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "a", "1001", "100.00")
	seedAccount(t, s, "b", "1002", "0.00")
	seedAccount(t, s, "c", "1003", "0.00")

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.RecordTransaction(ctx, newTxn("R1", "10.00", "a", "b"))
		return err
	}))

	err := s.RunInTx(ctx, func(ctx context.Context, u portsrepo.LedgerUnit) error {
		_, err := u.CountInFlight(ctx, "a")
		assert.Error(t, err, "account must be locked first")
		_, err = u.UpdateAccountStatus(ctx, "a", domain.AccountSuspended, "ops", time.Now())
		assert.Error(t, err, "account must be locked first")

		_, err = u.LockAccounts(ctx, "a", "b", "c")
		require.NoError(t, err)
		for id, want := range map[string]int{"a": 1, "b": 1, "c": 0} {
			n, err := u.CountInFlight(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, n, id)
		}

		acc, err := u.UpdateAccountStatus(ctx, "c", domain.AccountClosed, "ops", time.Now())
		require.NoError(t, err)
		assert.Equal(t, domain.AccountClosed, acc.Status)
		return errors.New("roll back")
	})
	require.Error(t, err)

	c, err := s.FindAccountByID(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountActive, c.Status, "status change must not survive a failed unit")
}
