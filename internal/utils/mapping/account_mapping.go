package mapping

import (
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/SscSPs/banking_ledger/internal/models"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:        d.AccountID,
		OwnerID:          d.OwnerID,
		AccountNumber:    d.AccountNumber,
		Balance:          d.Balance,
		AvailableBalance: d.AvailableBalance,
		CurrencyCode:     d.CurrencyCode,
		Status:           models.AccountStatus(d.Status),
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:        m.AccountID,
		OwnerID:          m.OwnerID,
		AccountNumber:    m.AccountNumber,
		Balance:          m.Balance,
		AvailableBalance: m.AvailableBalance,
		CurrencyCode:     m.CurrencyCode,
		Status:           domain.AccountStatus(m.Status),
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainAccountSlice converts a slice of model Accounts to a slice of domain Accounts
func ToDomainAccountSlice(ms []models.Account) []domain.Account {
	ds := make([]domain.Account, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainAccount(m)
	}
	return ds
}
