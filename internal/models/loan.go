package models

import "github.com/shopspring/decimal"

// Loan is the row shape of the loans table.
type Loan struct {
	LoanID             string          `db:"loan_id"`
	OwnerID            string          `db:"owner_id"`
	AccountID          string          `db:"account_id"`
	PrincipalAmount    decimal.Decimal `db:"principal_amount"`
	InterestRate       decimal.Decimal `db:"interest_rate"`
	TermMonths         int             `db:"term_months"`
	OutstandingBalance decimal.Decimal `db:"outstanding_balance"`
	CurrencyCode       string          `db:"currency_code"`
	Status             string          `db:"status"`
	AuditFields
}
