package services

import (
	"context"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/SscSPs/banking_ledger/internal/dto"
)

// TransferSvc moves funds between accounts.
type TransferSvc interface {
	// CreateTransfer executes a transfer at most once per idempotency key.
	CreateTransfer(ctx context.Context, userID, idempotencyKey string, req dto.CreateTransferRequest) (*domain.TransferResult, error)

	// GetTransfer retrieves a transfer the user is a party to.
	GetTransfer(ctx context.Context, userID, reference string) (*domain.Transaction, error)

	// ReverseTransfer compensates a completed internal transfer with a new transaction.
	ReverseTransfer(ctx context.Context, userID, reference string) (*domain.Transaction, error)
}
