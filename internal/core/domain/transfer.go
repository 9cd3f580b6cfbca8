package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// referenceNamespace seeds deterministic references derived from idempotency keys.
var referenceNamespace = uuid.MustParse("6f1d3c52-5a0e-4b8e-9d7a-2f4c1b9e8a31")

// Reference prefixes by transaction purpose.
const (
	PrefixTransfer     = "TRF"
	PrefixLoanPayment  = "LPY"
	PrefixDeposit      = "DEP"
	PrefixDisbursement = "DSB"
)

// DeriveReference returns a stable transaction reference for an idempotency scope and key.
// Two executions guarded by the same key always collide on this reference.
func DeriveReference(prefix, scope, key string) string {
	id := uuid.NewSHA1(referenceNamespace, []byte(scope+"\x00"+key))
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}

// NewReference returns a random transaction reference.
func NewReference(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// ReversalReference is the reference of the compensating transaction for reference.
func ReversalReference(reference string) string {
	return reference + "-REV"
}

// FeeReference is the reference of the fee transaction charged for reference.
func FeeReference(reference string) string {
	return reference + "-FEE"
}

// TransferCommand is a validated, normalised transfer request.
type TransferCommand struct {
	UserID          string
	FromAccountID   string
	ToAccountID     string
	ToAccountNumber string
	BankCode        string
	Amount          decimal.Decimal
	CurrencyCode    string
	Description     string
}

// TransferResult is the outcome of a transfer call. Replayed is set when the result was
// served from the idempotency store rather than executed.
type TransferResult struct {
	Transaction Transaction
	Replayed    bool
}

// TransactionEvent is published to the notification collaborator when a transaction
// reaches COMPLETED or FAILED.
type TransactionEvent struct {
	UserID        string            `json:"userId"`
	Type          string            `json:"type"`
	TransactionID string            `json:"transactionId"`
	Reference     string            `json:"reference"`
	Status        TransactionStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
}

// NewTransactionEvent builds the notification payload for txn on behalf of userID.
func NewTransactionEvent(userID string, txn Transaction) TransactionEvent {
	return TransactionEvent{
		UserID:        userID,
		Type:          "transaction",
		TransactionID: txn.TransactionID,
		Reference:     txn.Reference,
		Status:        txn.Status,
		Amount:        txn.Amount,
		Currency:      txn.CurrencyCode,
	}
}
