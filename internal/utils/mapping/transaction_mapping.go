package mapping

import (
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/SscSPs/banking_ledger/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID:     d.TransactionID,
		FromAccountID:     d.FromAccountID,
		ToAccountID:       d.ToAccountID,
		Amount:            d.Amount,
		CurrencyCode:      d.CurrencyCode,
		TransactionType:   string(d.Type),
		Status:            string(d.Status),
		Reference:         d.Reference,
		ExternalReference: d.ExternalReference,
		Fee:               d.Fee,
		ReversalOf:        d.ReversalOf,
		LoanBalanceAfter:  d.LoanBalanceAfter,
		Description:       d.Description,
		ProcessedAt:       d.ProcessedAt,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:     m.TransactionID,
		FromAccountID:     m.FromAccountID,
		ToAccountID:       m.ToAccountID,
		Amount:            m.Amount,
		CurrencyCode:      m.CurrencyCode,
		Type:              domain.TransactionType(m.TransactionType),
		Status:            domain.TransactionStatus(m.Status),
		Reference:         m.Reference,
		ExternalReference: m.ExternalReference,
		Fee:               m.Fee,
		ReversalOf:        m.ReversalOf,
		LoanBalanceAfter:  m.LoanBalanceAfter,
		Description:       m.Description,
		ProcessedAt:       m.ProcessedAt,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainTransactionSlice converts a slice of model Transactions to domain Transactions
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	ds := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTransaction(m)
	}
	return ds
}
