package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/platform/metrics"
	"github.com/SscSPs/banking_ledger/internal/utils/accounting"
	"github.com/google/uuid"
)

// EndpointCreateTransfer names the idempotency scope of CreateTransfer.
const EndpointCreateTransfer = "POST /transfers"

// TransferService moves funds between accounts of this bank, and out to other banks
// through the settlement gateway.
type TransferService struct {
	BaseService
	store       portsrepo.LedgerStore
	idempotency portssvc.IdempotencySvc
	settlement  *SettlementService
	adapter     *SettlementAdapter
	notifier    *Notifier
	retrier     unitRetrier
	bankCode    string
	now         func() time.Time
}

// TransferOption configures a TransferService.
type TransferOption func(*TransferService)

// WithExternalSettlement enables transfers to other banks.
func WithExternalSettlement(adapter *SettlementAdapter, settlement *SettlementService) TransferOption {
	return func(s *TransferService) {
		s.adapter = adapter
		s.settlement = settlement
	}
}

// WithTransferNotifier attaches a Notifier for terminal outcomes.
func WithTransferNotifier(n *Notifier) TransferOption {
	return func(s *TransferService) { s.notifier = n }
}

// WithTransferMaxRetries bounds retries of a unit that lost a lock race.
func WithTransferMaxRetries(n uint64) TransferOption {
	return func(s *TransferService) { s.retrier.maxRetries = n }
}

// WithTransferClock overrides time.Now.
func WithTransferClock(now func() time.Time) TransferOption {
	return func(s *TransferService) { s.now = now }
}

// NewTransferService creates a TransferService. bankCode identifies this bank; transfers
// carrying any other bank code leave through the settlement gateway.
func NewTransferService(store portsrepo.LedgerStore, idem portssvc.IdempotencySvc, bankCode string, opts ...TransferOption) *TransferService {
	s := &TransferService{
		store:       store,
		idempotency: idem,
		retrier:     newUnitRetrier(store, 3),
		bankCode:    bankCode,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.TransferSvc = (*TransferService)(nil)

// transferFingerprint is the canonical form of a transfer request.
type transferFingerprint struct {
	From        string `json:"from"`
	To          string `json:"to"`
	ToNumber    string `json:"toNumber"`
	BankCode    string `json:"bankCode"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

func newTransferCommand(userID string, req dto.CreateTransferRequest) domain.TransferCommand {
	return domain.TransferCommand{
		UserID:          userID,
		FromAccountID:   strings.TrimSpace(req.FromAccountID),
		ToAccountID:     strings.TrimSpace(req.ToAccountID),
		ToAccountNumber: strings.TrimSpace(req.ToAccountNumber),
		BankCode:        strings.ToUpper(strings.TrimSpace(req.BankCode)),
		Amount:          req.Amount,
		CurrencyCode:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		Description:     strings.TrimSpace(req.Description),
	}
}

func (s *TransferService) CreateTransfer(ctx context.Context, userID, idempotencyKey string, req dto.CreateTransferRequest) (*domain.TransferResult, error) {
	if idempotencyKey == "" {
		return nil, fmt.Errorf("%w: Idempotency-Key header is required", apperrors.ErrValidation)
	}
	cmd := newTransferCommand(userID, req)
	scope := userID + ":" + EndpointCreateTransfer
	fp := transferFingerprint{
		From:        cmd.FromAccountID,
		To:          cmd.ToAccountID,
		ToNumber:    cmd.ToAccountNumber,
		BankCode:    cmd.BankCode,
		Amount:      cmd.Amount.String(),
		Currency:    cmd.CurrencyCode,
		Description: cmd.Description,
	}

	snap, replayed, err := guardedCall(ctx, s.idempotency, scope, idempotencyKey, fp, func(ctx context.Context) (domain.ResultSnapshot, error) {
		reference := domain.DeriveReference(domain.PrefixTransfer, scope, idempotencyKey)
		txn, err := s.execute(ctx, cmd, reference)
		if err != nil {
			return domain.ResultSnapshot{}, err
		}
		return domain.ResultSnapshot{Transaction: txn}, nil
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Transfer failed", slog.String("user_id", userID), slog.Bool("replayed", replayed))
		return nil, err
	}
	if snap.Transaction == nil {
		return nil, fmt.Errorf("%w: stored transfer outcome is empty", apperrors.ErrInternal)
	}
	return &domain.TransferResult{Transaction: *snap.Transaction, Replayed: replayed}, nil
}

func (s *TransferService) isExternal(cmd domain.TransferCommand) bool {
	return cmd.BankCode != "" && !strings.EqualFold(cmd.BankCode, s.bankCode)
}

func (s *TransferService) validate(cmd domain.TransferCommand) error {
	if err := accounting.ValidateAmount(cmd.Amount); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidAmount, err)
	}
	if cmd.CurrencyCode == "" {
		return fmt.Errorf("%w: currency is required", apperrors.ErrValidation)
	}
	if cmd.FromAccountID == "" {
		return fmt.Errorf("%w: fromAccountId is required", apperrors.ErrValidation)
	}
	if (cmd.ToAccountID == "") == (cmd.ToAccountNumber == "") {
		return fmt.Errorf("%w: exactly one of toAccountId and toAccountNumber is required", apperrors.ErrValidation)
	}
	if s.isExternal(cmd) && cmd.ToAccountNumber == "" {
		return fmt.Errorf("%w: transfers to another bank require toAccountNumber", apperrors.ErrValidation)
	}
	return nil
}

func (s *TransferService) execute(ctx context.Context, cmd domain.TransferCommand, reference string) (*domain.Transaction, error) {
	if err := s.validate(cmd); err != nil {
		return nil, err
	}
	if s.isExternal(cmd) {
		if s.adapter == nil || s.settlement == nil {
			return nil, fmt.Errorf("%w: transfers to other banks are not enabled", apperrors.ErrValidation)
		}
		return s.executeExternal(ctx, cmd, reference)
	}

	toID := cmd.ToAccountID
	if toID == "" {
		dest, err := s.store.FindAccountByNumber(ctx, cmd.ToAccountNumber)
		if err != nil {
			return nil, err
		}
		toID = dest.AccountID
	}
	if toID == cmd.FromAccountID {
		return nil, apperrors.ErrSameAccount
	}
	return s.executeInternal(ctx, cmd, toID, reference)
}

// checkSource validates the debited account under lock.
func checkSource(src domain.Account, cmd domain.TransferCommand) error {
	if src.OwnerID != cmd.UserID {
		return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, src.AccountID)
	}
	if !src.IsActive() {
		return fmt.Errorf("%w: source account is %s", apperrors.ErrAccountInactive, src.Status)
	}
	if src.CurrencyCode != cmd.CurrencyCode {
		return apperrors.ErrCurrencyMismatch
	}
	if !src.CanCover(cmd.Amount) {
		return fmt.Errorf("%w: available balance %s", apperrors.ErrInsufficientFunds, src.AvailableBalance.StringFixed(2))
	}
	return nil
}

func (s *TransferService) executeInternal(ctx context.Context, cmd domain.TransferCommand, toID, reference string) (*domain.Transaction, error) {
	var result domain.Transaction
	err := s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		accounts, err := unit.LockAccounts(ctx, cmd.FromAccountID, toID)
		if err != nil {
			return err
		}
		src, dst := accounts[cmd.FromAccountID], accounts[toID]
		if err := checkSource(src, cmd); err != nil {
			return err
		}
		if !dst.IsActive() {
			return fmt.Errorf("%w: destination account is %s", apperrors.ErrAccountInactive, dst.Status)
		}
		if dst.CurrencyCode != cmd.CurrencyCode {
			return apperrors.ErrCurrencyMismatch
		}

		now := s.now().UTC()
		fromID, destID := src.AccountID, dst.AccountID
		txn, err := unit.RecordTransaction(ctx, domain.Transaction{
			TransactionID: uuid.NewString(),
			FromAccountID: &fromID,
			ToAccountID:   &destID,
			Amount:        cmd.Amount,
			CurrencyCode:  cmd.CurrencyCode,
			Type:          domain.TransactionTransfer,
			Status:        domain.StatusPending,
			Reference:     reference,
			Description:   cmd.Description,
			AuditFields:   domain.NewAuditFields(cmd.UserID, now),
		})
		if err != nil {
			return err
		}
		if _, err := unit.ApplyDelta(ctx, fromID, cmd.Amount.Neg(), cmd.Amount.Neg()); err != nil {
			return err
		}
		if _, err := unit.ApplyDelta(ctx, destID, cmd.Amount, cmd.Amount); err != nil {
			return err
		}
		completed, err := unit.UpdateTransactionStatus(ctx, domain.TransactionStatusUpdate{
			TransactionID: txn.TransactionID,
			From:          domain.StatusPending,
			To:            domain.StatusCompleted,
			ProcessedAt:   &now,
			UpdatedBy:     cmd.UserID,
			UpdatedAt:     now,
		})
		if err != nil {
			return err
		}
		result = *completed
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// an earlier run with the same key already committed
			return s.store.FindTransactionByReference(ctx, reference)
		}
		metrics.TransfersTotal.WithLabelValues("internal", apperrors.CodeOf(err)).Inc()
		return nil, err
	}

	metrics.TransfersTotal.WithLabelValues("internal", string(result.Status)).Inc()
	s.LogInfo(ctx, "Internal transfer completed",
		slog.String("reference", reference),
		slog.String("amount", cmd.Amount.StringFixed(2)))
	s.notifier.Notify(ctx, cmd.UserID, result)
	return &result, nil
}

func (s *TransferService) executeExternal(ctx context.Context, cmd domain.TransferCommand, reference string) (*domain.Transaction, error) {
	if _, err := s.adapter.Verify(ctx, cmd.ToAccountNumber, cmd.BankCode); err != nil {
		return nil, err
	}

	// Unit A: earmark the funds.
	var pending domain.Transaction
	err := s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		accounts, err := unit.LockAccounts(ctx, cmd.FromAccountID)
		if err != nil {
			return err
		}
		src := accounts[cmd.FromAccountID]
		if err := checkSource(src, cmd); err != nil {
			return err
		}
		now := s.now().UTC()
		fromID := src.AccountID
		txn, err := unit.RecordTransaction(ctx, domain.Transaction{
			TransactionID: uuid.NewString(),
			FromAccountID: &fromID,
			Amount:        cmd.Amount,
			CurrencyCode:  cmd.CurrencyCode,
			Type:          domain.TransactionTransfer,
			Status:        domain.StatusPending,
			Reference:     reference,
			Description:   cmd.Description,
			AuditFields:   domain.NewAuditFields(cmd.UserID, now),
		})
		if err != nil {
			return err
		}
		if _, err := unit.ApplyDelta(ctx, fromID, cmd.Amount.Neg(), cmd.Amount.Neg()); err != nil {
			return err
		}
		pending = *txn
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrDuplicate) {
			metrics.TransfersTotal.WithLabelValues("external", apperrors.CodeOf(err)).Inc()
			return nil, err
		}
		existing, findErr := s.store.FindTransactionByReference(ctx, reference)
		if findErr != nil {
			return nil, findErr
		}
		if existing.Status != domain.StatusPending {
			return existing, nil
		}
		// earmarked by an earlier run that never reached the gateway
		pending = *existing
	}

	// Submit outside any unit.
	result, submitErr := s.adapter.Submit(ctx, domain.SettlementRequest{
		Reference:     reference,
		AccountNumber: cmd.ToAccountNumber,
		BankCode:      cmd.BankCode,
		Amount:        cmd.Amount,
		CurrencyCode:  cmd.CurrencyCode,
		Narration:     cmd.Description,
	})
	if submitErr != nil {
		// outcome unknown; the funds stay earmarked until the settlement is reconciled
		s.LogWarn(ctx, "Settlement outcome unknown, awaiting reconciliation",
			slog.String("reference", reference),
			slog.String("error", submitErr.Error()))
		result = &domain.SettlementResult{Status: domain.SettlementPending}
	}

	// Unit B: apply the outcome.
	final, err := s.settlement.applyOutcome(ctx, reference, *result, "initiate")
	if err != nil {
		if isSettlementError(err) {
			return &pending, nil
		}
		return nil, err
	}
	metrics.TransfersTotal.WithLabelValues("external", string(final.Status)).Inc()
	return final, nil
}

func (s *TransferService) GetTransfer(ctx context.Context, userID, reference string) (*domain.Transaction, error) {
	txn, err := s.store.FindTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParty(ctx, userID, *txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// authorizeParty hides transactions the user is not a party to behind not found.
func (s *TransferService) authorizeParty(ctx context.Context, userID string, txn domain.Transaction) error {
	for _, id := range []*string{txn.FromAccountID, txn.ToAccountID} {
		if id == nil {
			continue
		}
		acc, err := s.store.FindAccountByID(ctx, *id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return err
		}
		if acc.OwnerID == userID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", apperrors.ErrTransferNotFound, txn.Reference)
}

// ReverseTransfer sends the funds of a completed internal transfer back to the payer.
// Only the owner of the receiving account may give the funds up.
func (s *TransferService) ReverseTransfer(ctx context.Context, userID, reference string) (*domain.Transaction, error) {
	original, err := s.store.FindTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParty(ctx, userID, *original); err != nil {
		return nil, err
	}
	if original.Type != domain.TransactionTransfer || original.FromAccountID == nil || original.ToAccountID == nil {
		return nil, fmt.Errorf("%w: only internal transfers can be reversed", apperrors.ErrValidation)
	}
	recipient, err := s.store.FindAccountByID(ctx, *original.ToAccountID)
	if err != nil {
		return nil, err
	}
	if recipient.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the recipient can reverse transfer %s", apperrors.ErrForbidden, reference)
	}

	var reversal domain.Transaction
	err = s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		txn, err := unit.LockTransactionByReference(ctx, reference)
		if err != nil {
			return err
		}
		if !txn.Status.CanTransitionTo(domain.StatusReversed) {
			return fmt.Errorf("%w: transfer is %s", apperrors.ErrInvalidTransition, txn.Status)
		}
		fromID, toID := *txn.FromAccountID, *txn.ToAccountID
		accounts, err := unit.LockAccounts(ctx, fromID, toID)
		if err != nil {
			return err
		}
		if payer := accounts[fromID]; payer.Status == domain.AccountClosed {
			return fmt.Errorf("%w: account %s is closed", apperrors.ErrAccountInactive, fromID)
		}
		// funds go back from the original destination to the original source
		if _, err := unit.ApplyDelta(ctx, toID, txn.Amount.Neg(), txn.Amount.Neg()); err != nil {
			return err
		}
		if _, err := unit.ApplyDelta(ctx, fromID, txn.Amount, txn.Amount); err != nil {
			return err
		}

		now := s.now().UTC()
		originalID := txn.TransactionID
		recorded, err := unit.RecordTransaction(ctx, domain.Transaction{
			TransactionID: uuid.NewString(),
			FromAccountID: &toID,
			ToAccountID:   &fromID,
			Amount:        txn.Amount,
			CurrencyCode:  txn.CurrencyCode,
			Type:          domain.TransactionTransfer,
			Status:        domain.StatusCompleted,
			Reference:     domain.ReversalReference(txn.Reference),
			ReversalOf:    &originalID,
			Description:   "Reversal of " + txn.Reference,
			ProcessedAt:   &now,
			AuditFields:   domain.NewAuditFields(userID, now),
		})
		if err != nil {
			return err
		}
		if _, err := unit.UpdateTransactionStatus(ctx, domain.TransactionStatusUpdate{
			TransactionID: txn.TransactionID,
			From:          txn.Status,
			To:            domain.StatusReversed,
			UpdatedBy:     userID,
			UpdatedAt:     now,
		}); err != nil {
			return err
		}
		reversal = *recorded
		return nil
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Transfer reversal failed", slog.String("reference", reference))
		return nil, err
	}

	s.LogInfo(ctx, "Transfer reversed", slog.String("reference", reference), slog.String("reversal", reversal.Reference))
	s.notifier.Notify(ctx, userID, reversal)
	return &reversal, nil
}
