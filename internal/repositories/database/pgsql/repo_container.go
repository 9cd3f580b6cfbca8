package pgsql

import (
	"time"

	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool, lockTimeout time.Duration) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		Ledger:      newPgxLedgerStore(dbPool, lockTimeout),
		Idempotency: newPgxIdempotencyRepository(dbPool),
	}
}
