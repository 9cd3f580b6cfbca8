package services

import (
	"context"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SettlementGateway is the correspondent bank collaborator. It is trusted for the status it
// eventually reports but not for timing.
type SettlementGateway interface {
	// VerifyDestination resolves an account at another bank; unknown accounts fail with
	// apperrors.ErrAccountNotFound.
	VerifyDestination(ctx context.Context, accountNumber, bankCode string) (*domain.DestinationInfo, error)

	// Initiate asks the collaborator to move funds.
	Initiate(ctx context.Context, req domain.SettlementRequest) (*domain.SettlementResult, error)

	// PollStatus asks for the current status of a settlement by our reference.
	PollStatus(ctx context.Context, reference string) (*domain.SettlementResult, error)
}

// SettlementSvc applies settlement outcomes to the ledger.
type SettlementSvc interface {
	// Reconcile applies an out-of-band result exactly once. Transactions no longer awaiting
	// settlement are left untouched.
	Reconcile(ctx context.Context, reference string, status domain.SettlementStatus, externalReference string, fee *decimal.Decimal) (*domain.Transaction, error)

	// Sweep polls the collaborator for transactions still awaiting settlement and reconciles
	// every resolved one. It returns how many were resolved.
	Sweep(ctx context.Context) (int, error)
}

// EventPublisher delivers notification events. Delivery is best effort.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event domain.TransactionEvent) error
	Close() error
}
