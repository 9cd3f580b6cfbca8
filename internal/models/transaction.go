package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the row shape of the transactions table. Nullable columns are pointers.
type Transaction struct {
	TransactionID     string           `db:"transaction_id"`
	FromAccountID     *string          `db:"from_account_id"`
	ToAccountID       *string          `db:"to_account_id"`
	Amount            decimal.Decimal  `db:"amount"`
	CurrencyCode      string           `db:"currency_code"`
	TransactionType   string           `db:"transaction_type"`
	Status            string           `db:"status"`
	Reference         string           `db:"reference"`
	ExternalReference *string          `db:"external_reference"`
	Fee               *decimal.Decimal `db:"fee"`
	ReversalOf        *string          `db:"reversal_of"`
	LoanBalanceAfter  *decimal.Decimal `db:"loan_balance_after"`
	Description       string           `db:"description"`
	ProcessedAt       *time.Time       `db:"processed_at"`
	AuditFields
}
