package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the business purpose of a ledger transaction.
type TransactionType string

const (
	TransactionTransfer    TransactionType = "TRANSFER"
	TransactionDeposit     TransactionType = "DEPOSIT"
	TransactionWithdrawal  TransactionType = "WITHDRAWAL"
	TransactionLoanPayment TransactionType = "LOAN_PAYMENT"
	TransactionFee         TransactionType = "FEE"
)

// TransactionStatus is the state of a transaction in its lifecycle.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusCompleted  TransactionStatus = "COMPLETED"
	StatusFailed     TransactionStatus = "FAILED"
	StatusCancelled  TransactionStatus = "CANCELLED"
	StatusReversed   TransactionStatus = "REVERSED"
)

var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusReversed},
}

// CanTransitionTo reports whether a transaction may move from s to next.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether no further transition is possible except an explicit reversal.
func (s TransactionStatus) IsFinal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusReversed:
		return true
	}
	return false
}

// Transaction is an immutable record of one attempted funds movement.
// Only Status and the settlement stamps change after creation.
type Transaction struct {
	TransactionID     string            `json:"transactionID"`
	FromAccountID     *string           `json:"fromAccountID,omitempty"`
	ToAccountID       *string           `json:"toAccountID,omitempty"`
	Amount            decimal.Decimal   `json:"amount"` // Always positive
	CurrencyCode      string            `json:"currencyCode"`
	Type              TransactionType   `json:"type"`
	Status            TransactionStatus `json:"status"`
	Reference         string            `json:"reference"` // Globally unique
	ExternalReference *string           `json:"externalReference,omitempty"`
	Fee               *decimal.Decimal  `json:"fee,omitempty"`
	ReversalOf        *string           `json:"reversalOf,omitempty"`
	LoanBalanceAfter  *decimal.Decimal  `json:"loanBalanceAfter,omitempty"` // Outstanding loan balance right after a LOAN_PAYMENT
	Description       string            `json:"description,omitempty"`
	ProcessedAt       *time.Time        `json:"processedAt,omitempty"`
	AuditFields
}

// Touches reports whether the transaction moves money into or out of accountID.
func (t Transaction) Touches(accountID string) bool {
	return (t.FromAccountID != nil && *t.FromAccountID == accountID) ||
		(t.ToAccountID != nil && *t.ToAccountID == accountID)
}

// TransactionStatusUpdate describes a status transition together with the settlement stamps
// that may accompany it. Nil fields are left unchanged.
type TransactionStatusUpdate struct {
	TransactionID     string
	From              TransactionStatus
	To                TransactionStatus
	ExternalReference *string
	Fee               *decimal.Decimal
	ProcessedAt       *time.Time
	UpdatedBy         string
	UpdatedAt         time.Time
}
