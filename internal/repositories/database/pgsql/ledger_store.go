package pgsql

import (
	"context"
	"time"

	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxLedgerStore is the Postgres backed LedgerStore.
type PgxLedgerStore struct {
	*PgxAccountRepository
	*PgxTransactionRepository
	*PgxLoanRepository

	base        BaseRepository
	lockTimeout time.Duration
}

func newPgxLedgerStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PgxLedgerStore {
	return &PgxLedgerStore{
		PgxAccountRepository:     newPgxAccountRepository(pool),
		PgxTransactionRepository: newPgxTransactionRepository(pool),
		PgxLoanRepository:        newPgxLoanRepository(pool),
		base:                     BaseRepository{Pool: pool},
		lockTimeout:              lockTimeout,
	}
}

var _ portsrepo.LedgerStore = (*PgxLedgerStore)(nil)

// RunInTx runs fn inside one READ COMMITTED transaction with a bounded lock wait.
func (s *PgxLedgerStore) RunInTx(ctx context.Context, fn portsrepo.UnitFunc) (err error) {
	tx, err := s.base.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.base.Rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			_ = s.base.Rollback(ctx, tx)
		}
	}()

	if err = setLockTimeout(ctx, tx, s.lockTimeout); err != nil {
		return err
	}
	if err = fn(ctx, newPgxLedgerUnit(tx)); err != nil {
		return err
	}
	return s.base.Commit(ctx, tx)
}
