package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/platform/metrics"
	"github.com/cenkalti/backoff/v4"
)

// errKeyBusy means another caller still owns the key.
var errKeyBusy = errors.New("idempotency key in progress")

// IdempotencyService guards mutating operations so each (scope, key) executes at most once.
// Callers in this process queue on an in-memory lock held from Begin until Complete or
// Release; callers in other processes see the durable IN_PROGRESS record and poll.
type IdempotencyService struct {
	BaseService
	repo  portsrepo.IdempotencyRepository
	locks *keyedLock

	ttl          time.Duration
	lockDuration time.Duration
	waitTimeout  time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

// IdempotencyOption configures an IdempotencyService.
type IdempotencyOption func(*IdempotencyService)

// WithIdempotencyTTL sets how long completed records are kept.
func WithIdempotencyTTL(ttl time.Duration) IdempotencyOption {
	return func(s *IdempotencyService) { s.ttl = ttl }
}

// WithIdempotencyLockDuration sets how long a provisional record is protected from reclaim.
func WithIdempotencyLockDuration(d time.Duration) IdempotencyOption {
	return func(s *IdempotencyService) { s.lockDuration = d }
}

// WithIdempotencyWaitTimeout bounds how long Begin waits for a concurrent owner.
func WithIdempotencyWaitTimeout(d time.Duration) IdempotencyOption {
	return func(s *IdempotencyService) { s.waitTimeout = d }
}

// WithIdempotencyClock overrides time.Now.
func WithIdempotencyClock(now func() time.Time) IdempotencyOption {
	return func(s *IdempotencyService) { s.now = now }
}

// NewIdempotencyService creates an IdempotencyService backed by repo.
func NewIdempotencyService(repo portsrepo.IdempotencyRepository, opts ...IdempotencyOption) *IdempotencyService {
	s := &IdempotencyService{
		repo:         repo,
		locks:        newKeyedLock(),
		ttl:          24 * time.Hour,
		lockDuration: 2 * time.Minute,
		waitTimeout:  5 * time.Second,
		pollInterval: 20 * time.Millisecond,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.IdempotencySvc = (*IdempotencyService)(nil)

func lockName(scope, key string) string {
	return scope + "\x00" + key
}

func (s *IdempotencyService) Begin(ctx context.Context, scope, key, fingerprint string) (*domain.IdempotencyOutcome, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", apperrors.ErrValidation)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()

	name := lockName(scope, key)
	if err := s.locks.acquire(waitCtx, name); err != nil {
		metrics.IdempotencyOutcomesTotal.WithLabelValues("timeout").Inc()
		return nil, fmt.Errorf("%w: timed out waiting for idempotency key", apperrors.ErrConcurrencyConflict)
	}

	var outcome *domain.IdempotencyOutcome
	op := func() error {
		o, err := s.claim(waitCtx, scope, key, fingerprint)
		if err != nil {
			if errors.Is(err, errKeyBusy) {
				return err
			}
			return backoff.Permanent(err)
		}
		outcome = o
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.pollInterval
	eb.MaxInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(eb, waitCtx))
	if err != nil || !outcome.Fresh {
		s.locks.release(name)
	}
	if err != nil {
		if errors.Is(err, errKeyBusy) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			metrics.IdempotencyOutcomesTotal.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: idempotency key is still being processed", apperrors.ErrConcurrencyConflict)
		}
		return nil, err
	}
	return outcome, nil
}

// claim makes one attempt to take ownership of the key or read its stored outcome.
func (s *IdempotencyService) claim(ctx context.Context, scope, key, fingerprint string) (*domain.IdempotencyOutcome, error) {
	now := s.now()
	record := domain.IdempotencyRecord{
		Scope:              scope,
		Key:                key,
		RequestFingerprint: fingerprint,
		State:              domain.IdempotencyInProgress,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.ttl),
		LockedUntil:        now.Add(s.lockDuration),
	}
	inserted, err := s.repo.InsertRecord(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	if inserted {
		metrics.IdempotencyOutcomesTotal.WithLabelValues("fresh").Inc()
		return &domain.IdempotencyOutcome{Fresh: true}, nil
	}

	existing, err := s.repo.FindRecord(ctx, scope, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// released between insert and read
			return nil, errKeyBusy
		}
		return nil, fmt.Errorf("failed to read idempotency record: %w", err)
	}

	if existing.RequestFingerprint != fingerprint {
		metrics.IdempotencyOutcomesTotal.WithLabelValues("conflict").Inc()
		return nil, apperrors.ErrIdempotencyKeyConflict
	}

	switch existing.State {
	case domain.IdempotencyCompleted:
		var snapshot domain.ResultSnapshot
		if err := json.Unmarshal(existing.ResultSnapshot, &snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode idempotency snapshot: %w", err)
		}
		metrics.IdempotencyOutcomesTotal.WithLabelValues("replay").Inc()
		return &domain.IdempotencyOutcome{Fresh: false, Snapshot: &snapshot}, nil
	case domain.IdempotencyInProgress:
		if existing.IsStale(now) {
			reclaimed, err := s.repo.ReclaimRecord(ctx, scope, key, now, now.Add(s.lockDuration))
			if err != nil {
				return nil, fmt.Errorf("failed to reclaim idempotency record: %w", err)
			}
			if reclaimed {
				s.LogWarn(ctx, "Reclaimed stale idempotency record", slog.String("scope", scope), slog.String("key", key))
				metrics.IdempotencyOutcomesTotal.WithLabelValues("reclaimed").Inc()
				return &domain.IdempotencyOutcome{Fresh: true}, nil
			}
		}
		return nil, errKeyBusy
	default:
		return nil, fmt.Errorf("unknown idempotency state %q", existing.State)
	}
}

func (s *IdempotencyService) Complete(ctx context.Context, scope, key string, snapshot domain.ResultSnapshot) error {
	defer s.locks.release(lockName(scope, key))
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency snapshot: %w", err)
	}
	if err := s.repo.CompleteRecord(ctx, scope, key, body); err != nil {
		s.LogError(ctx, err, "Failed to complete idempotency record", slog.String("scope", scope), slog.String("key", key))
		return err
	}
	return nil
}

func (s *IdempotencyService) Release(ctx context.Context, scope, key string) error {
	defer s.locks.release(lockName(scope, key))
	if err := s.repo.DeleteInProgress(ctx, scope, key); err != nil {
		s.LogError(ctx, err, "Failed to release idempotency record", slog.String("scope", scope), slog.String("key", key))
		return err
	}
	return nil
}

func (s *IdempotencyService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired idempotency records: %w", err)
	}
	if n > 0 {
		s.LogInfo(ctx, "Purged expired idempotency records", slog.Int64("count", n))
	}
	return n, nil
}

// guardedCall runs exec at most once for (scope, key). A replay returns the stored snapshot
// with replayed set. Terminal failures are stored and replayed like results; retryable
// failures release the key. An empty key runs exec unguarded.
func guardedCall(
	ctx context.Context,
	idem portssvc.IdempotencySvc,
	scope, key string,
	request any,
	exec func(ctx context.Context) (domain.ResultSnapshot, error),
) (domain.ResultSnapshot, bool, error) {
	if key == "" {
		snap, err := exec(ctx)
		return snap, false, err
	}

	fingerprint, err := Fingerprint(request)
	if err != nil {
		return domain.ResultSnapshot{}, false, err
	}
	outcome, err := idem.Begin(ctx, scope, key, fingerprint)
	if err != nil {
		return domain.ResultSnapshot{}, false, err
	}
	if !outcome.Fresh {
		snap := *outcome.Snapshot
		if snap.IsError() {
			return snap, true, apperrors.FromCode(snap.ErrorCode, snap.ErrorMessage)
		}
		return snap, true, nil
	}

	// the outcome must be recorded even if the caller has gone away
	storeCtx := context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			_ = idem.Release(storeCtx, scope, key)
			panic(r)
		}
	}()
	snap, execErr := exec(ctx)
	if execErr != nil {
		if apperrors.IsTerminal(execErr) {
			failure := domain.ResultSnapshot{ErrorCode: apperrors.CodeOf(execErr), ErrorMessage: execErr.Error()}
			_ = idem.Complete(storeCtx, scope, key, failure)
		} else {
			_ = idem.Release(storeCtx, scope, key)
		}
		return snap, false, execErr
	}
	_ = idem.Complete(storeCtx, scope, key, snap)
	return snap, false, nil
}
