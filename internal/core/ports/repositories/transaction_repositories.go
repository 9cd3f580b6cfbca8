package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
)

// TransactionReader defines read operations for ledger transactions.
type TransactionReader interface {
	// FindTransactionByReference retrieves a transaction by its globally unique reference.
	FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// ListTransactionsByAccountID lists transactions touching an account, newest first.
	ListTransactionsByAccountID(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.Transaction, *string, error)

	// ListTransactionsByStatus lists transactions in a status last updated before olderThan, oldest first.
	ListTransactionsByStatus(ctx context.Context, status domain.TransactionStatus, olderThan time.Time, limit int) ([]domain.Transaction, error)
}
