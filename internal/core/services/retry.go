package services

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/banking_ledger/internal/platform/metrics"
	"github.com/cenkalti/backoff/v4"
)

// unitRetrier reruns an atomic unit from the top when it loses a lock race.
type unitRetrier struct {
	store      portsrepo.LedgerStore
	maxRetries uint64
	initial    time.Duration
}

func newUnitRetrier(store portsrepo.LedgerStore, maxRetries uint64) unitRetrier {
	return unitRetrier{store: store, maxRetries: maxRetries, initial: 25 * time.Millisecond}
}

// run executes fn in a fresh unit, retrying only apperrors.ErrConcurrencyConflict.
func (r unitRetrier) run(ctx context.Context, fn portsrepo.UnitFunc) error {
	attempt := 0
	op := func() error {
		if attempt > 0 {
			metrics.LedgerRetriesTotal.Inc()
		}
		attempt++
		err := r.store.RunInTx(ctx, fn)
		if err == nil || errors.Is(err, apperrors.ErrConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.MaxInterval = time.Second
	eb.MaxElapsedTime = 0
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, r.maxRetries), ctx))
}
