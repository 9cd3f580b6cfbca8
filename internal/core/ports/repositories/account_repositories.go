package repositories

import (
	"context"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountByNumber retrieves an account by its customer facing account number.
	FindAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)

	// ListAccountsByOwner retrieves every account owned by a user.
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data that never touch balances.
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error
}
