package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/platform/metrics"
	"github.com/SscSPs/banking_ledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanService services loans: origination, disbursement and repayment.
type LoanService struct {
	BaseService
	store       portsrepo.LedgerStore
	idempotency portssvc.IdempotencySvc
	notifier    *Notifier
	retrier     unitRetrier
	now         func() time.Time
}

// LoanOption configures a LoanService.
type LoanOption func(*LoanService)

// WithLoanNotifier attaches a Notifier for completed payments and disbursements.
func WithLoanNotifier(n *Notifier) LoanOption {
	return func(s *LoanService) { s.notifier = n }
}

// WithLoanMaxRetries bounds retries of a unit that lost a lock race.
func WithLoanMaxRetries(n uint64) LoanOption {
	return func(s *LoanService) { s.retrier.maxRetries = n }
}

// WithLoanClock overrides time.Now.
func WithLoanClock(now func() time.Time) LoanOption {
	return func(s *LoanService) { s.now = now }
}

// NewLoanService creates a LoanService.
func NewLoanService(store portsrepo.LedgerStore, idem portssvc.IdempotencySvc, opts ...LoanOption) *LoanService {
	s := &LoanService{
		store:       store,
		idempotency: idem,
		retrier:     newUnitRetrier(store, 3),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.LoanSvcFacade = (*LoanService)(nil)

func (s *LoanService) GetLoan(ctx context.Context, userID, loanID string) (*domain.Loan, error) {
	loan, err := s.store.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.OwnerID != userID {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrLoanNotFound, loanID)
	}
	return loan, nil
}

func (s *LoanService) ListLoans(ctx context.Context, userID string) ([]domain.Loan, error) {
	loans, err := s.store.ListLoansByOwner(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list loans", slog.String("user_id", userID))
		return nil, err
	}
	return loans, nil
}

type loanPaymentFingerprint struct {
	LoanID    string `json:"loanId"`
	AccountID string `json:"accountId"`
	Amount    string `json:"amount"`
}

// PaymentEndpoint names the idempotency scope of a payment against loanID.
func PaymentEndpoint(loanID string) string {
	return "POST /loans/" + loanID + "/payment"
}

func (s *LoanService) ApplyPayment(ctx context.Context, userID, idempotencyKey, loanID string, req dto.LoanPaymentRequest) (*domain.LoanPaymentResult, bool, error) {
	if err := accounting.ValidateAmount(req.Amount); err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperrors.ErrInvalidAmount, err)
	}
	if req.AccountID == "" {
		return nil, false, fmt.Errorf("%w: accountId is required", apperrors.ErrValidation)
	}

	scope := userID + ":" + PaymentEndpoint(loanID)
	reference := domain.NewReference(domain.PrefixLoanPayment)
	if idempotencyKey != "" {
		reference = domain.DeriveReference(domain.PrefixLoanPayment, scope, idempotencyKey)
	}
	fp := loanPaymentFingerprint{LoanID: loanID, AccountID: req.AccountID, Amount: req.Amount.String()}

	snap, replayed, err := guardedCall(ctx, s.idempotency, scope, idempotencyKey, fp, func(ctx context.Context) (domain.ResultSnapshot, error) {
		res, err := s.applyPayment(ctx, userID, loanID, req.AccountID, req.Amount, reference)
		if err != nil {
			return domain.ResultSnapshot{}, err
		}
		return domain.ResultSnapshot{LoanPayment: res}, nil
	})
	if err != nil {
		metrics.LoanPaymentsTotal.WithLabelValues(apperrors.CodeOf(err)).Inc()
		s.LogOutcome(ctx, err, "Loan payment failed", slog.String("loan_id", loanID), slog.Bool("replayed", replayed))
		return nil, replayed, err
	}
	if snap.LoanPayment == nil {
		return nil, replayed, fmt.Errorf("%w: stored loan payment outcome is empty", apperrors.ErrInternal)
	}
	return snap.LoanPayment, replayed, nil
}

func (s *LoanService) applyPayment(ctx context.Context, userID, loanID, accountID string, amount decimal.Decimal, reference string) (*domain.LoanPaymentResult, error) {
	var (
		result domain.LoanPaymentResult
		txn    domain.Transaction
	)
	err := s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		accounts, err := unit.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		acc := accounts[accountID]
		if acc.OwnerID != userID {
			return fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		loan, err := unit.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.OwnerID != userID {
			return fmt.Errorf("%w: %s", apperrors.ErrLoanNotFound, loanID)
		}
		if loan.Status != domain.LoanActive {
			return fmt.Errorf("%w: loan is %s", apperrors.ErrLoanNotActive, loan.Status)
		}
		if !acc.IsActive() {
			return fmt.Errorf("%w: account is %s", apperrors.ErrAccountInactive, acc.Status)
		}
		if acc.CurrencyCode != loan.CurrencyCode {
			return apperrors.ErrCurrencyMismatch
		}
		if amount.GreaterThan(loan.OutstandingBalance) {
			return fmt.Errorf("%w: outstanding balance is %s", apperrors.ErrLoanOverpayment, loan.OutstandingBalance.StringFixed(2))
		}
		if !acc.CanCover(amount) {
			return fmt.Errorf("%w: available balance %s", apperrors.ErrInsufficientFunds, acc.AvailableBalance.StringFixed(2))
		}

		if _, err := unit.ApplyDelta(ctx, accountID, amount.Neg(), amount.Neg()); err != nil {
			return err
		}
		remaining := loan.OutstandingBalance.Sub(amount)
		now := s.now().UTC()
		recorded, err := unit.RecordTransaction(ctx, domain.Transaction{
			TransactionID:    uuid.NewString(),
			FromAccountID:    &acc.AccountID,
			Amount:           amount,
			CurrencyCode:     acc.CurrencyCode,
			Type:             domain.TransactionLoanPayment,
			Status:           domain.StatusCompleted,
			Reference:        reference,
			LoanBalanceAfter: &remaining,
			Description:      "Repayment of loan " + loanID,
			ProcessedAt:      &now,
			AuditFields:      domain.NewAuditFields(userID, now),
		})
		if err != nil {
			return err
		}

		loan.OutstandingBalance = remaining
		if loan.OutstandingBalance.IsZero() {
			loan.Status = domain.LoanPaidOff
		}
		loan.LastUpdatedAt = now
		loan.LastUpdatedBy = userID
		if err := unit.UpdateLoan(ctx, *loan); err != nil {
			return err
		}

		txn = *recorded
		result = domain.LoanPaymentResult{
			LoanID:           loanID,
			TransactionID:    recorded.TransactionID,
			Reference:        reference,
			RemainingBalance: loan.OutstandingBalance,
			LoanStatus:       loan.Status,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return s.resumePayment(ctx, loanID, reference)
		}
		return nil, err
	}

	metrics.LoanPaymentsTotal.WithLabelValues(string(result.LoanStatus)).Inc()
	s.LogInfo(ctx, "Loan payment applied",
		slog.String("loan_id", loanID),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("remaining", result.RemainingBalance.StringFixed(2)))
	s.notifier.Notify(ctx, userID, txn)
	return &result, nil
}

// resumePayment rebuilds the result of a payment an earlier run already committed.
func (s *LoanService) resumePayment(ctx context.Context, loanID, reference string) (*domain.LoanPaymentResult, error) {
	txn, err := s.store.FindTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn.LoanBalanceAfter == nil {
		return nil, fmt.Errorf("%w: payment %s has no recorded loan balance", apperrors.ErrInternal, reference)
	}
	status := domain.LoanActive
	if txn.LoanBalanceAfter.IsZero() {
		status = domain.LoanPaidOff
	}
	return &domain.LoanPaymentResult{
		LoanID:           loanID,
		TransactionID:    txn.TransactionID,
		Reference:        reference,
		RemainingBalance: *txn.LoanBalanceAfter,
		LoanStatus:       status,
	}, nil
}

func (s *LoanService) ApplyForLoan(ctx context.Context, userID string, req dto.ApplyForLoanRequest) (*domain.Loan, error) {
	if err := accounting.ValidateAmount(req.PrincipalAmount); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidAmount, err)
	}
	if req.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", apperrors.ErrValidation)
	}
	if req.TermMonths <= 0 {
		return nil, fmt.Errorf("%w: term must be at least one month", apperrors.ErrValidation)
	}
	account, err := s.store.FindAccountByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != userID {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, req.AccountID)
	}
	if !account.IsActive() {
		return nil, fmt.Errorf("%w: account is %s", apperrors.ErrAccountInactive, account.Status)
	}

	now := s.now().UTC()
	loan := domain.Loan{
		LoanID:             uuid.NewString(),
		OwnerID:            userID,
		AccountID:          account.AccountID,
		PrincipalAmount:    req.PrincipalAmount,
		InterestRate:       req.InterestRate,
		TermMonths:         req.TermMonths,
		OutstandingBalance: decimal.Zero,
		CurrencyCode:       account.CurrencyCode,
		Status:             domain.LoanPending,
		AuditFields:        domain.NewAuditFields(userID, now),
	}
	if err := s.store.SaveLoan(ctx, loan); err != nil {
		s.LogError(ctx, err, "Failed to save loan", slog.String("user_id", userID))
		return nil, err
	}
	s.LogInfo(ctx, "Loan application created", slog.String("loan_id", loan.LoanID))
	return &loan, nil
}

// transition moves a loan between lifecycle states without touching balances.
func (s *LoanService) transition(ctx context.Context, adminID, loanID string, to domain.LoanStatus) (*domain.Loan, error) {
	var result domain.Loan
	err := s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		loan, err := unit.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: loan is %s", apperrors.ErrInvalidTransition, loan.Status)
		}
		loan.Status = to
		loan.LastUpdatedAt = s.now().UTC()
		loan.LastUpdatedBy = adminID
		if err := unit.UpdateLoan(ctx, *loan); err != nil {
			return err
		}
		result = *loan
		return nil
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Loan transition failed", slog.String("loan_id", loanID), slog.String("to", string(to)))
		return nil, err
	}
	s.LogInfo(ctx, "Loan status updated", slog.String("loan_id", loanID), slog.String("status", string(to)))
	return &result, nil
}

func (s *LoanService) ApproveLoan(ctx context.Context, adminID, loanID string) (*domain.Loan, error) {
	return s.transition(ctx, adminID, loanID, domain.LoanApproved)
}

func (s *LoanService) MarkDefaulted(ctx context.Context, adminID, loanID string) (*domain.Loan, error) {
	return s.transition(ctx, adminID, loanID, domain.LoanDefaulted)
}

// DisburseLoan credits the principal to the borrower's account and activates the loan with
// principal plus simple interest outstanding.
func (s *LoanService) DisburseLoan(ctx context.Context, adminID, loanID string) (*domain.Loan, error) {
	current, err := s.store.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	var (
		result domain.Loan
		txn    domain.Transaction
	)
	err = s.retrier.run(ctx, func(ctx context.Context, unit portsrepo.LedgerUnit) error {
		accounts, err := unit.LockAccounts(ctx, current.AccountID)
		if err != nil {
			return err
		}
		acc := accounts[current.AccountID]
		loan, err := unit.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.Status.CanTransitionTo(domain.LoanActive) {
			return fmt.Errorf("%w: loan is %s", apperrors.ErrInvalidTransition, loan.Status)
		}
		if !acc.IsActive() {
			return fmt.Errorf("%w: account is %s", apperrors.ErrAccountInactive, acc.Status)
		}
		if acc.CurrencyCode != loan.CurrencyCode {
			return apperrors.ErrCurrencyMismatch
		}

		if _, err := unit.ApplyDelta(ctx, acc.AccountID, loan.PrincipalAmount, loan.PrincipalAmount); err != nil {
			return err
		}
		now := s.now().UTC()
		recorded, err := unit.RecordTransaction(ctx, domain.Transaction{
			TransactionID: uuid.NewString(),
			ToAccountID:   &acc.AccountID,
			Amount:        loan.PrincipalAmount,
			CurrencyCode:  loan.CurrencyCode,
			Type:          domain.TransactionDeposit,
			Status:        domain.StatusCompleted,
			Reference:     domain.DeriveReference(domain.PrefixDisbursement, "loan", loanID),
			Description:   "Disbursement of loan " + loanID,
			ProcessedAt:   &now,
			AuditFields:   domain.NewAuditFields(adminID, now),
		})
		if err != nil {
			return err
		}

		loan.OutstandingBalance = accounting.TotalRepayable(loan.PrincipalAmount, loan.InterestRate, loan.TermMonths)
		loan.Status = domain.LoanActive
		loan.LastUpdatedAt = now
		loan.LastUpdatedBy = adminID
		if err := unit.UpdateLoan(ctx, *loan); err != nil {
			return err
		}
		result, txn = *loan, *recorded
		return nil
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Loan disbursement failed", slog.String("loan_id", loanID))
		return nil, err
	}

	s.LogInfo(ctx, "Loan disbursed",
		slog.String("loan_id", loanID),
		slog.String("principal", result.PrincipalAmount.StringFixed(2)),
		slog.String("outstanding", result.OutstandingBalance.StringFixed(2)))
	s.notifier.Notify(ctx, result.OwnerID, txn)
	return &result, nil
}
