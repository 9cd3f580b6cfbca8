package dto

import (
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateTransferRequest is the body of POST /transfers. Exactly one of ToAccountID and
// ToAccountNumber must be set; BankCode routes the transfer to another bank.
type CreateTransferRequest struct {
	FromAccountID   string          `json:"fromAccountId" binding:"required"`
	ToAccountID     string          `json:"toAccountId" binding:"required_without=ToAccountNumber,excluded_with=ToAccountNumber"`
	ToAccountNumber string          `json:"toAccountNumber" binding:"required_without=ToAccountID"`
	BankCode        string          `json:"bankCode" binding:"omitempty,alphanum,max=16"`
	Amount          decimal.Decimal `json:"amount" binding:"required,dgt0"`
	Currency        string          `json:"currency" binding:"required,len=3,uppercase"`
	Description     string          `json:"description" binding:"max=255"`
}

// TransferData is the replay-stable part of a transfer response.
type TransferData struct {
	Reference string                   `json:"reference"`
	Status    domain.TransactionStatus `json:"status"`
	Fee       *string                  `json:"fee,omitempty"`
}

// ToTransferData builds the response data from a transaction snapshot.
func ToTransferData(txn *domain.Transaction) TransferData {
	data := TransferData{Reference: txn.Reference, Status: txn.Status}
	if txn.Fee != nil {
		fee := FormatMoney(*txn.Fee)
		data.Fee = &fee
	}
	return data
}

// TransactionResponse defines the data returned for a ledger transaction.
type TransactionResponse struct {
	TransactionID     string                   `json:"transactionID"`
	Reference         string                   `json:"reference"`
	FromAccountID     *string                  `json:"fromAccountId,omitempty"`
	ToAccountID       *string                  `json:"toAccountId,omitempty"`
	Amount            string                   `json:"amount"`
	Currency          string                   `json:"currency"`
	Type              domain.TransactionType   `json:"type"`
	Status            domain.TransactionStatus `json:"status"`
	ExternalReference *string                  `json:"externalReference,omitempty"`
	Fee               *string                  `json:"fee,omitempty"`
	ReversalOf        *string                  `json:"reversalOf,omitempty"`
	Description       string                   `json:"description,omitempty"`
	ProcessedAt       *time.Time               `json:"processedAt,omitempty"`
	CreatedAt         time.Time                `json:"createdAt"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:     txn.TransactionID,
		Reference:         txn.Reference,
		FromAccountID:     txn.FromAccountID,
		ToAccountID:       txn.ToAccountID,
		Amount:            FormatMoney(txn.Amount),
		Currency:          txn.CurrencyCode,
		Type:              txn.Type,
		Status:            txn.Status,
		ExternalReference: txn.ExternalReference,
		ReversalOf:        txn.ReversalOf,
		Description:       txn.Description,
		ProcessedAt:       txn.ProcessedAt,
		CreatedAt:         txn.CreatedAt,
	}
	if txn.Fee != nil {
		fee := FormatMoney(*txn.Fee)
		resp.Fee = &fee
	}
	return resp
}

// ToTransactionResponses converts a slice of domain.Transaction to []TransactionResponse.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = ToTransactionResponse(&txns[i])
	}
	return responses
}

// ListTransactionsParams defines query parameters for listing transactions.
type ListTransactionsParams struct {
	Limit     int    `form:"limit,default=20" binding:"min=0,max=100"`
	NextToken string `form:"nextToken"`
}

// ListTransactionsResponse wraps a page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}
