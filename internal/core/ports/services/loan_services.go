package services

import (
	"context"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/SscSPs/banking_ledger/internal/dto"
)

// LoanReaderSvc defines read operations for loans.
type LoanReaderSvc interface {
	GetLoan(ctx context.Context, userID, loanID string) (*domain.Loan, error)
	ListLoans(ctx context.Context, userID string) ([]domain.Loan, error)
}

// LoanPaymentSvc applies repayments.
type LoanPaymentSvc interface {
	// ApplyPayment debits the account and reduces the outstanding balance in one atomic unit.
	// idempotencyKey may be empty.
	ApplyPayment(ctx context.Context, userID, idempotencyKey, loanID string, req dto.LoanPaymentRequest) (*domain.LoanPaymentResult, bool, error)
}

// LoanLifecycleSvc covers origination and servicing transitions.
type LoanLifecycleSvc interface {
	ApplyForLoan(ctx context.Context, userID string, req dto.ApplyForLoanRequest) (*domain.Loan, error)
	ApproveLoan(ctx context.Context, adminID, loanID string) (*domain.Loan, error)
	DisburseLoan(ctx context.Context, adminID, loanID string) (*domain.Loan, error)
	MarkDefaulted(ctx context.Context, adminID, loanID string) (*domain.Loan, error)
}

// LoanSvcFacade combines all loan-related service interfaces
type LoanSvcFacade interface {
	LoanReaderSvc
	LoanPaymentSvc
	LoanLifecycleSvc
}
