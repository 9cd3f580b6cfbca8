package models

import (
	"github.com/shopspring/decimal"
)

// AccountStatus mirrors domain.AccountStatus as stored in the accounts table.
type AccountStatus string

// Account is the row shape of the accounts table.
type Account struct {
	AccountID        string          `db:"account_id"`
	OwnerID          string          `db:"owner_id"`
	AccountNumber    string          `db:"account_number"`
	Balance          decimal.Decimal `db:"balance"`
	AvailableBalance decimal.Decimal `db:"available_balance"`
	CurrencyCode     string          `db:"currency_code"`
	Status           AccountStatus   `db:"status"`
	AuditFields
}
