package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SettlementService applies settlement outcomes for external transfers to the ledger.
type SettlementService struct {
	BaseService
	store    portsrepo.LedgerStore
	adapter  *SettlementAdapter
	notifier *Notifier
	retrier  unitRetrier

	minAge      time.Duration
	batchSize   int
	concurrency int
	now         func() time.Time
}

// SettlementOption configures a SettlementService.
type SettlementOption func(*SettlementService)

// WithSweepPolicy sets how old a pending settlement must be before Sweep polls it, how many
// are polled per sweep, and how many polls run at once.
func WithSweepPolicy(minAge time.Duration, batchSize, concurrency int) SettlementOption {
	return func(s *SettlementService) {
		s.minAge = minAge
		if batchSize > 0 {
			s.batchSize = batchSize
		}
		if concurrency > 0 {
			s.concurrency = concurrency
		}
	}
}

// WithSettlementClock overrides time.Now.
func WithSettlementClock(now func() time.Time) SettlementOption {
	return func(s *SettlementService) { s.now = now }
}

// WithSettlementNotifier attaches a Notifier for terminal outcomes.
func WithSettlementNotifier(n *Notifier) SettlementOption {
	return func(s *SettlementService) { s.notifier = n }
}

// WithSettlementMaxRetries bounds retries of a unit that lost a lock race.
func WithSettlementMaxRetries(n uint64) SettlementOption {
	return func(s *SettlementService) { s.retrier.maxRetries = n }
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(store portsrepo.LedgerStore, adapter *SettlementAdapter, opts ...SettlementOption) *SettlementService {
	s := &SettlementService{
		store:       store,
		adapter:     adapter,
		retrier:     newUnitRetrier(store, 3),
		minAge:      30 * time.Second,
		batchSize:   100,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.SettlementSvc = (*SettlementService)(nil)

func (s *SettlementService) Reconcile(ctx context.Context, reference string, status domain.SettlementStatus, externalReference string, fee *decimal.Decimal) (*domain.Transaction, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown settlement status %q", apperrors.ErrValidation, status)
	}
	if fee != nil && fee.IsNegative() {
		return nil, fmt.Errorf("%w: fee cannot be negative", apperrors.ErrValidation)
	}
	result := domain.SettlementResult{Status: status, ExternalReference: externalReference, Fee: fee}
	return s.applyOutcome(ctx, reference, result, "webhook")
}

func (s *SettlementService) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.minAge)
	var candidates []domain.Transaction
	for _, status := range []domain.TransactionStatus{domain.StatusProcessing, domain.StatusPending} {
		txns, err := s.store.ListTransactionsByStatus(ctx, status, cutoff, s.batchSize)
		if err != nil {
			return 0, fmt.Errorf("failed to list %s transactions: %w", status, err)
		}
		for _, txn := range txns {
			if txn.Type == domain.TransactionTransfer && txn.ToAccountID == nil && txn.FromAccountID != nil {
				candidates = append(candidates, txn)
			}
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	var resolved atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, txn := range candidates {
		g.Go(func() error {
			result, err := s.adapter.Poll(gctx, txn.Reference)
			if err != nil {
				s.LogWarn(gctx, "Settlement poll failed", slog.String("reference", txn.Reference), slog.String("error", err.Error()))
				return nil
			}
			if result.Status == domain.SettlementPending && txn.Status == domain.StatusProcessing {
				return nil
			}
			updated, err := s.applyOutcome(gctx, txn.Reference, *result, "sweep")
			if err != nil {
				s.LogOutcome(gctx, err, "Failed to apply polled settlement", slog.String("reference", txn.Reference))
				return nil
			}
			if updated.Status.IsFinal() {
				resolved.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(resolved.Load()), err
	}

	s.LogInfo(ctx, "Settlement sweep finished", slog.Int("candidates", len(candidates)), slog.Int64("resolved", resolved.Load()))
	return int(resolved.Load()), nil
}

// applyOutcome moves an external transfer forward under a lock on its row. Rows that are no
// longer PENDING or PROCESSING are returned unchanged, so each outcome takes effect once.
func (s *SettlementService) applyOutcome(ctx context.Context, reference string, result domain.SettlementResult, source string) (*domain.Transaction, error) {
	var (
		final   domain.Transaction
		applied bool
	)
	err := s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		applied = false
		txn, err := unit.LockTransactionByReference(ctx, reference)
		if err != nil {
			return err
		}
		final = *txn
		if txn.Status != domain.StatusPending && txn.Status != domain.StatusProcessing {
			return nil
		}
		if txn.FromAccountID == nil || txn.ToAccountID != nil {
			return fmt.Errorf("%w: transaction %s is not an external transfer", apperrors.ErrValidation, reference)
		}

		now := s.now().UTC()
		switch result.Status {
		case domain.SettlementPending:
			if txn.Status == domain.StatusProcessing {
				return nil
			}
			updated, err := unit.UpdateTransactionStatus(ctx, domain.TransactionStatusUpdate{
				TransactionID: txn.TransactionID,
				From:          txn.Status,
				To:            domain.StatusProcessing,
				UpdatedBy:     domain.SystemUserID,
				UpdatedAt:     now,
			})
			if err != nil {
				return err
			}
			final, applied = *updated, true
			return nil
		case domain.SettlementCompleted:
			updated, err := s.complete(ctx, unit, *txn, result, now)
			if err != nil {
				return err
			}
			final, applied = *updated, true
			return nil
		case domain.SettlementFailed:
			updated, err := s.fail(ctx, unit, *txn, now)
			if err != nil {
				return err
			}
			final, applied = *updated, true
			return nil
		default:
			return fmt.Errorf("%w: unknown settlement status %q", apperrors.ErrValidation, result.Status)
		}
	})
	if err != nil {
		return nil, err
	}

	if applied {
		metrics.ReconciliationsTotal.WithLabelValues(source, string(final.Status)).Inc()
		s.LogInfo(ctx, "Settlement outcome applied",
			slog.String("reference", reference),
			slog.String("status", string(final.Status)),
			slog.String("source", source))
		s.notifier.Notify(ctx, final.CreatedBy, final)
	}
	return &final, nil
}

// complete finalises the transfer and charges the fee as its own transaction. A fee the
// account cannot cover is waived.
func (s *SettlementService) complete(ctx context.Context, unit portsrepo.LedgerUnit, txn domain.Transaction, result domain.SettlementResult, now time.Time) (*domain.Transaction, error) {
	update := domain.TransactionStatusUpdate{
		TransactionID: txn.TransactionID,
		From:          txn.Status,
		To:            domain.StatusCompleted,
		ProcessedAt:   &now,
		UpdatedBy:     domain.SystemUserID,
		UpdatedAt:     now,
	}
	if result.ExternalReference != "" {
		extRef := result.ExternalReference
		update.ExternalReference = &extRef
	}

	if result.Fee != nil && result.Fee.IsPositive() {
		fee := result.Fee.Round(2)
		accounts, err := unit.LockAccounts(ctx, *txn.FromAccountID)
		if err != nil {
			return nil, err
		}
		source := accounts[*txn.FromAccountID]
		if source.CanCover(fee) {
			if _, err := unit.ApplyDelta(ctx, source.AccountID, fee.Neg(), fee.Neg()); err != nil {
				return nil, err
			}
			feeTxn := domain.Transaction{
				TransactionID: uuid.NewString(),
				FromAccountID: txn.FromAccountID,
				Amount:        fee,
				CurrencyCode:  txn.CurrencyCode,
				Type:          domain.TransactionFee,
				Status:        domain.StatusCompleted,
				Reference:     domain.FeeReference(txn.Reference),
				Description:   "Settlement fee for " + txn.Reference,
				ProcessedAt:   &now,
				AuditFields:   domain.NewAuditFields(txn.CreatedBy, now),
			}
			if _, err := unit.RecordTransaction(ctx, feeTxn); err != nil {
				return nil, err
			}
			update.Fee = &fee
		} else {
			s.LogWarn(ctx, "Settlement fee waived, insufficient available balance",
				slog.String("reference", txn.Reference),
				slog.String("fee", fee.StringFixed(2)))
		}
	}
	return unit.UpdateTransactionStatus(ctx, update)
}

// fail marks the transfer FAILED and returns the earmarked funds with a compensating credit.
func (s *SettlementService) fail(ctx context.Context, unit portsrepo.LedgerUnit, txn domain.Transaction, now time.Time) (*domain.Transaction, error) {
	accounts, err := unit.LockAccounts(ctx, *txn.FromAccountID)
	if err != nil {
		return nil, err
	}
	if source := accounts[*txn.FromAccountID]; source.Status == domain.AccountClosed {
		return nil, fmt.Errorf("%w: account %s is closed", apperrors.ErrAccountInactive, source.AccountID)
	}
	if _, err := unit.ApplyDelta(ctx, *txn.FromAccountID, txn.Amount, txn.Amount); err != nil {
		return nil, err
	}
	originalID := txn.TransactionID
	compensation := domain.Transaction{
		TransactionID: uuid.NewString(),
		ToAccountID:   txn.FromAccountID,
		Amount:        txn.Amount,
		CurrencyCode:  txn.CurrencyCode,
		Type:          txn.Type,
		Status:        domain.StatusCompleted,
		Reference:     domain.ReversalReference(txn.Reference),
		ReversalOf:    &originalID,
		Description:   "Reversal of failed settlement " + txn.Reference,
		ProcessedAt:   &now,
		AuditFields:   domain.NewAuditFields(domain.SystemUserID, now),
	}
	if _, err := unit.RecordTransaction(ctx, compensation); err != nil {
		return nil, err
	}
	return unit.UpdateTransactionStatus(ctx, domain.TransactionStatusUpdate{
		TransactionID: txn.TransactionID,
		From:          txn.Status,
		To:            domain.StatusFailed,
		ProcessedAt:   &now,
		UpdatedBy:     domain.SystemUserID,
		UpdatedAt:     now,
	})
}

// isSettlementError reports whether err came from the gateway rather than the ledger.
func isSettlementError(err error) bool {
	return errors.Is(err, apperrors.ErrExternalGatewayTimeout) || errors.Is(err, apperrors.ErrExternalGatewayFailure)
}
