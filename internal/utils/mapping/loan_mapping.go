package mapping

import (
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/SscSPs/banking_ledger/internal/models"
)

// ToModelLoan converts a domain Loan to a model Loan
func ToModelLoan(d domain.Loan) models.Loan {
	return models.Loan{
		LoanID:             d.LoanID,
		OwnerID:            d.OwnerID,
		AccountID:          d.AccountID,
		PrincipalAmount:    d.PrincipalAmount,
		InterestRate:       d.InterestRate,
		TermMonths:         d.TermMonths,
		OutstandingBalance: d.OutstandingBalance,
		CurrencyCode:       d.CurrencyCode,
		Status:             string(d.Status),
		AuditFields:        ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainLoan converts a model Loan to a domain Loan
func ToDomainLoan(m models.Loan) domain.Loan {
	return domain.Loan{
		LoanID:             m.LoanID,
		OwnerID:            m.OwnerID,
		AccountID:          m.AccountID,
		PrincipalAmount:    m.PrincipalAmount,
		InterestRate:       m.InterestRate,
		TermMonths:         m.TermMonths,
		OutstandingBalance: m.OutstandingBalance,
		CurrencyCode:       m.CurrencyCode,
		Status:             domain.LoanStatus(m.Status),
		AuditFields:        ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainLoanSlice converts a slice of model Loans to domain Loans
func ToDomainLoanSlice(ms []models.Loan) []domain.Loan {
	ds := make([]domain.Loan, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainLoan(m)
	}
	return ds
}
