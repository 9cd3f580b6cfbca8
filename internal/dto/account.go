package dto

import (
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to open a new account.
type CreateAccountRequest struct {
	CurrencyCode string `json:"currencyCode" binding:"required,len=3,uppercase"`
}

// AccountResponse defines the data returned for an account.
// Mirrors domain.Account.
type AccountResponse struct {
	AccountID        string               `json:"accountID"`
	OwnerID          string               `json:"ownerID"`
	AccountNumber    string               `json:"accountNumber"`
	Balance          string               `json:"balance"`
	AvailableBalance string               `json:"availableBalance"`
	CurrencyCode     string               `json:"currencyCode"`
	Status           domain.AccountStatus `json:"status"`
	CreatedAt        time.Time            `json:"createdAt"`
	LastUpdatedAt    time.Time            `json:"lastUpdatedAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:        acc.AccountID,
		OwnerID:          acc.OwnerID,
		AccountNumber:    acc.AccountNumber,
		Balance:          FormatMoney(acc.Balance),
		AvailableBalance: FormatMoney(acc.AvailableBalance),
		CurrencyCode:     acc.CurrencyCode,
		Status:           acc.Status,
		CreatedAt:        acc.CreatedAt,
		LastUpdatedAt:    acc.LastUpdatedAt,
	}
}

// ToListAccountResponse converts a slice of domain.Account to a slice of AccountResponse DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i := range accounts {
		res[i] = ToAccountResponse(&accounts[i])
	}
	return res
}

// ListAccountsResponse wraps the list of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// DepositRequest credits an account from outside the ledger (cash desk, payroll).
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required,dgt0"`
	Currency    string          `json:"currency" binding:"required,len=3,uppercase"`
	Description string          `json:"description" binding:"max=255"`
}

// UpdateAccountStatusRequest moves an account to another lifecycle status.
type UpdateAccountStatusRequest struct {
	Status domain.AccountStatus `json:"status" binding:"required,oneof=ACTIVE INACTIVE SUSPENDED CLOSED"`
}

// FormatMoney renders an amount with exactly two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
