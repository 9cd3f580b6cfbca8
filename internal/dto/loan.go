package dto

import (
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LoanPaymentRequest is the body of POST /loans/{loanId}/payment.
type LoanPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required,dgt0"`
	AccountID string          `json:"accountId" binding:"required"`
}

// LoanPaymentResponse is the replay-stable result of a loan payment.
type LoanPaymentResponse struct {
	RemainingBalance string            `json:"remainingBalance"`
	TransactionID    string            `json:"transactionId"`
	LoanStatus       domain.LoanStatus `json:"loanStatus"`
}

// ToLoanPaymentResponse converts a payment result to its response DTO.
func ToLoanPaymentResponse(res *domain.LoanPaymentResult) LoanPaymentResponse {
	return LoanPaymentResponse{
		RemainingBalance: FormatMoney(res.RemainingBalance),
		TransactionID:    res.TransactionID,
		LoanStatus:       res.LoanStatus,
	}
}

// ApplyForLoanRequest is the body of POST /loans.
type ApplyForLoanRequest struct {
	AccountID       string          `json:"accountId" binding:"required"`
	PrincipalAmount decimal.Decimal `json:"principalAmount" binding:"required,dgt0"`
	InterestRate    decimal.Decimal `json:"interestRate" binding:"required,dgte0"`
	TermMonths      int             `json:"termMonths" binding:"required,min=1,max=360"`
}

// LoanResponse defines the data returned for a loan.
type LoanResponse struct {
	LoanID             string            `json:"loanID"`
	OwnerID            string            `json:"ownerID"`
	AccountID          string            `json:"accountID"`
	PrincipalAmount    string            `json:"principalAmount"`
	InterestRate       string            `json:"interestRate"`
	TermMonths         int               `json:"termMonths"`
	OutstandingBalance string            `json:"outstandingBalance"`
	CurrencyCode       string            `json:"currencyCode"`
	Status             domain.LoanStatus `json:"status"`
	CreatedAt          time.Time         `json:"createdAt"`
	LastUpdatedAt      time.Time         `json:"lastUpdatedAt"`
}

// ToLoanResponse converts a domain.Loan to LoanResponse DTO.
func ToLoanResponse(loan *domain.Loan) LoanResponse {
	return LoanResponse{
		LoanID:             loan.LoanID,
		OwnerID:            loan.OwnerID,
		AccountID:          loan.AccountID,
		PrincipalAmount:    FormatMoney(loan.PrincipalAmount),
		InterestRate:       loan.InterestRate.String(),
		TermMonths:         loan.TermMonths,
		OutstandingBalance: FormatMoney(loan.OutstandingBalance),
		CurrencyCode:       loan.CurrencyCode,
		Status:             loan.Status,
		CreatedAt:          loan.CreatedAt,
		LastUpdatedAt:      loan.LastUpdatedAt,
	}
}

// ToListLoanResponse converts loans to response DTOs.
func ToListLoanResponse(loans []domain.Loan) []LoanResponse {
	res := make([]LoanResponse, len(loans))
	for i := range loans {
		res[i] = ToLoanResponse(&loans[i])
	}
	return res
}
