package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionMapping_PreservesNullableColumns(t *testing.T) {
	from := "acc-1"
	fee := decimal.RequireFromString("1.50")
	processed := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	d := domain.Transaction{
		TransactionID: "t-1",
		FromAccountID: &from,
		Amount:        decimal.RequireFromString("40.00"),
		CurrencyCode:  "USD",
		Type:          domain.TransactionTransfer,
		Status:        domain.StatusCompleted,
		Reference:     "TRF-1",
		Fee:           &fee,
		ProcessedAt:   &processed,
	}

	m := ToModelTransaction(d)
	assert.Equal(t, "TRANSFER", m.TransactionType)
	assert.Nil(t, m.ToAccountID)
	assert.Nil(t, m.ReversalOf)

	back := ToDomainTransaction(m)
	assert.Equal(t, d, back)
}

func TestAccountMapping(t *testing.T) {
	d := domain.Account{
		AccountID:        "a",
		OwnerID:          "u",
		AccountNumber:    "1234567890",
		Balance:          decimal.RequireFromString("10.00"),
		AvailableBalance: decimal.RequireFromString("5.00"),
		CurrencyCode:     "USD",
		Status:           domain.AccountSuspended,
	}
	assert.Equal(t, d, ToDomainAccount(ToModelAccount(d)))
}
