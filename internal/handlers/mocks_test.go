package handlers_test

import (
	"context"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock TransferService ---
type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) CreateTransfer(ctx context.Context, userID, idempotencyKey string, req dto.CreateTransferRequest) (*domain.TransferResult, error) {
	args := m.Called(ctx, userID, idempotencyKey, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}

func (m *MockTransferService) GetTransfer(ctx context.Context, userID, reference string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransferService) ReverseTransfer(ctx context.Context, userID, reference string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

var _ portssvc.TransferSvc = (*MockTransferService)(nil)

// --- Mock LoanService ---
type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) loan(args mock.Arguments) (*domain.Loan, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, userID, loanID string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, userID, loanID))
}

func (m *MockLoanService) ListLoans(ctx context.Context, userID string) ([]domain.Loan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Loan), args.Error(1)
}

func (m *MockLoanService) ApplyPayment(ctx context.Context, userID, idempotencyKey, loanID string, req dto.LoanPaymentRequest) (*domain.LoanPaymentResult, bool, error) {
	args := m.Called(ctx, userID, idempotencyKey, loanID, req)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*domain.LoanPaymentResult), args.Bool(1), args.Error(2)
}

func (m *MockLoanService) ApplyForLoan(ctx context.Context, userID string, req dto.ApplyForLoanRequest) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, userID, req))
}

func (m *MockLoanService) ApproveLoan(ctx context.Context, adminID, loanID string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, adminID, loanID))
}

func (m *MockLoanService) DisburseLoan(ctx context.Context, adminID, loanID string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, adminID, loanID))
}

func (m *MockLoanService) MarkDefaulted(ctx context.Context, adminID, loanID string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, adminID, loanID))
}

var _ portssvc.LoanSvcFacade = (*MockLoanService)(nil)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) account(args mock.Arguments) (*domain.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	return m.account(m.Called(ctx, userID, accountID))
}

func (m *MockAccountService) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountService) ListTransactions(ctx context.Context, userID, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, userID, accountID, limit, nextToken)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), next, args.Error(2)
}

func (m *MockAccountService) CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error) {
	return m.account(m.Called(ctx, userID, req))
}

func (m *MockAccountService) Deposit(ctx context.Context, adminID, idempotencyKey, accountID string, req dto.DepositRequest) (*domain.TransferResult, error) {
	args := m.Called(ctx, adminID, idempotencyKey, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}

func (m *MockAccountService) UpdateStatus(ctx context.Context, adminID, accountID string, status domain.AccountStatus) (*domain.Account, error) {
	return m.account(m.Called(ctx, adminID, accountID, status))
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Mock SettlementService ---
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) Reconcile(ctx context.Context, reference string, status domain.SettlementStatus, externalReference string, fee *decimal.Decimal) (*domain.Transaction, error) {
	args := m.Called(ctx, reference, status, externalReference, fee)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockSettlementService) Sweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

var _ portssvc.SettlementSvc = (*MockSettlementService)(nil)
