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
	"github.com/SscSPs/banking_ledger/internal/utils"
	"github.com/SscSPs/banking_ledger/internal/utils/accounting"
	"github.com/SscSPs/banking_ledger/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const accountNumberAttempts = 5

// accountService implements the AccountSvcFacade interface
type accountService struct {
	BaseService
	store         portsrepo.LedgerStore
	idempotency   portssvc.IdempotencySvc
	notifier      *Notifier
	retrier       unitRetrier
	numberFactory func() (string, error)
	now           func() time.Time
}

// ServiceOption is a functional option for configuring the account service
type ServiceOption func(*accountService)

// WithAccountIdempotency enables deduplication of deposits by key.
func WithAccountIdempotency(idem portssvc.IdempotencySvc) ServiceOption {
	return func(s *accountService) {
		s.idempotency = idem
	}
}

// WithAccountNotifier attaches a Notifier for completed deposits.
func WithAccountNotifier(n *Notifier) ServiceOption {
	return func(s *accountService) {
		s.notifier = n
	}
}

// WithAccountNumberFactory overrides account number generation.
func WithAccountNumberFactory(f func() (string, error)) ServiceOption {
	return func(s *accountService) {
		s.numberFactory = f
	}
}

// WithAccountMaxRetries bounds retries of a unit that lost a lock race.
func WithAccountMaxRetries(n uint64) ServiceOption {
	return func(s *accountService) {
		s.retrier.maxRetries = n
	}
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(store portsrepo.LedgerStore, options ...ServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		store:         store,
		retrier:       newUnitRetrier(store, 3),
		numberFactory: utils.GenerateAccountNumber,
		now:           time.Now,
	}

	// Apply all options
	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.CurrencyCode))
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency code must have 3 letters", apperrors.ErrValidation)
	}

	now := s.now().UTC()
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		number, err := s.numberFactory()
		if err != nil {
			return nil, fmt.Errorf("failed to generate account number: %w", err)
		}
		account := domain.Account{
			AccountID:        uuid.NewString(),
			OwnerID:          userID,
			AccountNumber:    number,
			Balance:          decimal.Zero,
			AvailableBalance: decimal.Zero,
			CurrencyCode:     currency,
			Status:           domain.AccountActive,
			AuditFields:      domain.NewAuditFields(userID, now),
		}
		err = s.store.SaveAccount(ctx, account)
		if err == nil {
			s.LogInfo(ctx, "Account created successfully",
				slog.String("account_id", account.AccountID),
				slog.String("user_id", userID))
			return &account, nil
		}
		if !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to save account", slog.String("user_id", userID))
			return nil, err
		}
		s.LogDebug(ctx, "Account number collision, retrying", slog.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("%w: could not allocate a unique account number", apperrors.ErrInternal)
}

func (s *accountService) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	account, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account", slog.String("account_id", accountID))
		}
		return nil, err
	}
	if account.OwnerID != userID {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	accounts, err := s.store.ListAccountsByOwner(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts", slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

func (s *accountService) ListTransactions(ctx context.Context, userID, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return nil, nil, err
	}
	if nextToken != nil && *nextToken != "" {
		if _, err := pagination.DecodeToken(*nextToken); err != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken", apperrors.ErrValidation)
		}
	}
	txns, next, err := s.store.ListTransactionsByAccountID(ctx, accountID, pagination.ClampLimit(limit), nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("account_id", accountID))
		return nil, nil, err
	}
	return txns, next, nil
}

// depositFingerprint is the canonical form of a deposit request.
type depositFingerprint struct {
	AccountID   string `json:"accountId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

func (s *accountService) Deposit(ctx context.Context, adminID, idempotencyKey, accountID string, req dto.DepositRequest) (*domain.TransferResult, error) {
	if err := accounting.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidAmount, err)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	scope := adminID + ":POST /admin/accounts/" + accountID + "/deposit"
	reference := domain.NewReference(domain.PrefixDeposit)
	if idempotencyKey != "" {
		reference = domain.DeriveReference(domain.PrefixDeposit, scope, idempotencyKey)
	}
	fp := depositFingerprint{AccountID: accountID, Amount: req.Amount.String(), Currency: currency, Description: req.Description}

	if s.idempotency == nil {
		idempotencyKey = ""
	}
	snap, replayed, err := guardedCall(ctx, s.idempotency, scope, idempotencyKey, fp, func(ctx context.Context) (domain.ResultSnapshot, error) {
		txn, err := s.deposit(ctx, adminID, accountID, req.Amount, currency, req.Description, reference)
		if err != nil {
			return domain.ResultSnapshot{}, err
		}
		return domain.ResultSnapshot{Transaction: txn}, nil
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Deposit failed", slog.String("account_id", accountID))
		return nil, err
	}
	return &domain.TransferResult{Transaction: *snap.Transaction, Replayed: replayed}, nil
}

func (s *accountService) deposit(ctx context.Context, adminID, accountID string, amount decimal.Decimal, currency, description, reference string) (*domain.Transaction, error) {
	var result domain.Transaction
	err := s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		accounts, err := unit.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		acc := accounts[accountID]
		if !acc.IsActive() {
			return fmt.Errorf("%w: account is %s", apperrors.ErrAccountInactive, acc.Status)
		}
		if acc.CurrencyCode != currency {
			return apperrors.ErrCurrencyMismatch
		}
		if _, err := unit.ApplyDelta(ctx, accountID, amount, amount); err != nil {
			return err
		}
		now := s.now().UTC()
		txn, err := unit.RecordTransaction(ctx, domain.Transaction{
			TransactionID: uuid.NewString(),
			ToAccountID:   &acc.AccountID,
			Amount:        amount,
			CurrencyCode:  currency,
			Type:          domain.TransactionDeposit,
			Status:        domain.StatusCompleted,
			Reference:     reference,
			Description:   description,
			ProcessedAt:   &now,
			AuditFields:   domain.NewAuditFields(adminID, now),
		})
		if err != nil {
			return err
		}
		result = *txn
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return s.store.FindTransactionByReference(ctx, reference)
		}
		return nil, err
	}

	s.LogInfo(ctx, "Deposit completed", slog.String("account_id", accountID), slog.String("reference", reference))
	if owner, err := s.store.FindAccountByID(ctx, accountID); err == nil {
		s.notifier.Notify(ctx, owner.OwnerID, result)
	}
	return &result, nil
}

// UpdateStatus moves an account through its lifecycle. Closing needs a zero balance and no
// transaction still in flight, both checked under the account lock.
func (s *accountService) UpdateStatus(ctx context.Context, adminID, accountID string, status domain.AccountStatus) (*domain.Account, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown account status %q", apperrors.ErrValidation, status)
	}

	var updated domain.Account
	err := s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		accounts, err := unit.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		account := accounts[accountID]
		if !account.CanTransitionTo(status) {
			return fmt.Errorf("%w: account %s cannot move from %s to %s", apperrors.ErrInvalidTransition, accountID, account.Status, status)
		}
		if status == domain.AccountClosed {
			n, err := unit.CountInFlight(ctx, accountID)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: account %s has %d transactions in flight", apperrors.ErrInvalidTransition, accountID, n)
			}
		}
		acc, err := unit.UpdateAccountStatus(ctx, accountID, status, adminID, s.now().UTC())
		if err != nil {
			return err
		}
		updated = *acc
		return nil
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to update account status", slog.String("account_id", accountID))
		return nil, err
	}
	s.LogInfo(ctx, "Account status updated",
		slog.String("account_id", accountID),
		slog.String("status", string(status)))
	return &updated, nil
}
