package domain

import (
	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of a customer account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "ACTIVE"
	AccountInactive  AccountStatus = "INACTIVE"
	AccountSuspended AccountStatus = "SUSPENDED"
	AccountClosed    AccountStatus = "CLOSED"
)

// IsValid reports whether s is a known account status.
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountActive, AccountInactive, AccountSuspended, AccountClosed:
		return true
	}
	return false
}

// Account represents a customer account held in the ledger.
// Balances are only ever changed by the ledger store inside an atomic unit.
type Account struct {
	AccountID        string          `json:"accountID"`
	OwnerID          string          `json:"ownerID"`
	AccountNumber    string          `json:"accountNumber"` // Unique, customer facing
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"` // Never above Balance
	CurrencyCode     string          `json:"currencyCode"`     // Immutable after creation
	Status           AccountStatus   `json:"status"`
	AuditFields
}

// IsActive reports whether the account may take part in funds movement.
func (a Account) IsActive() bool {
	return a.Status == AccountActive
}

// CanCover reports whether the available balance covers amount.
func (a Account) CanCover(amount decimal.Decimal) bool {
	return a.AvailableBalance.GreaterThanOrEqual(amount)
}

// WithDelta returns a copy of the account with both balances moved and reports whether
// the result still satisfies 0 <= available <= balance.
func (a Account) WithDelta(balanceDelta, availableDelta decimal.Decimal) (Account, bool) {
	next := a
	next.Balance = a.Balance.Add(balanceDelta)
	next.AvailableBalance = a.AvailableBalance.Add(availableDelta)
	ok := !next.Balance.IsNegative() &&
		!next.AvailableBalance.IsNegative() &&
		next.AvailableBalance.LessThanOrEqual(next.Balance)
	return next, ok
}

// CanTransitionTo reports whether an account may move from its current status to next.
// Closed accounts are final.
func (a Account) CanTransitionTo(next AccountStatus) bool {
	if !next.IsValid() || a.Status == AccountClosed {
		return false
	}
	if next == AccountClosed {
		return a.Balance.IsZero()
	}
	return a.Status != next
}
