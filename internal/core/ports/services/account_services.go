package services

import (
	"context"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/SscSPs/banking_ledger/internal/dto"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	// GetAccount retrieves an account owned by userID.
	GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error)

	// ListAccounts retrieves every account owned by userID.
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)

	// ListTransactions pages through the transactions touching an account owned by userID.
	ListTransactions(ctx context.Context, userID, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	// CreateAccount opens a new zero-balance account for userID.
	CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error)

	// Deposit credits an account from outside the ledger. Admin only.
	Deposit(ctx context.Context, adminID, idempotencyKey, accountID string, req dto.DepositRequest) (*domain.TransferResult, error)

	// UpdateStatus moves an account to another lifecycle status. Admin only.
	UpdateStatus(ctx context.Context, adminID, accountID string, status domain.AccountStatus) (*domain.Account, error)
}

// AccountSvcFacade combines all account-related service interfaces
// This is a facade for clients that need access to all operations
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
