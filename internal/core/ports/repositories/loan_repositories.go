package repositories

import (
	"context"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
)

// LoanReader defines read operations for loans.
type LoanReader interface {
	FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)
	ListLoansByOwner(ctx context.Context, ownerID string) ([]domain.Loan, error)
}

// LoanWriter persists newly applied-for loans. Every later change goes through a LedgerUnit.
type LoanWriter interface {
	SaveLoan(ctx context.Context, loan domain.Loan) error
}
