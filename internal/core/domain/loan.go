package domain

import "github.com/shopspring/decimal"

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanPending   LoanStatus = "PENDING"
	LoanApproved  LoanStatus = "APPROVED"
	LoanActive    LoanStatus = "ACTIVE"
	LoanPaidOff   LoanStatus = "PAID_OFF"
	LoanDefaulted LoanStatus = "DEFAULTED"
)

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanPending:  {LoanApproved},
	LoanApproved: {LoanActive},
	LoanActive:   {LoanPaidOff, LoanDefaulted},
}

// CanTransitionTo reports whether a loan may move from s to next.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Loan is a credit facility owned by a user and serviced from one of their accounts.
type Loan struct {
	LoanID             string          `json:"loanID"`
	OwnerID            string          `json:"ownerID"`
	AccountID          string          `json:"accountID"` // Disbursement account
	PrincipalAmount    decimal.Decimal `json:"principalAmount"`
	InterestRate       decimal.Decimal `json:"interestRate"` // Annual percentage, e.g. 12.5
	TermMonths         int             `json:"termMonths"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"` // Never negative
	CurrencyCode       string          `json:"currencyCode"`
	Status             LoanStatus      `json:"status"`
	AuditFields
}

// LoanPaymentResult is the outcome of applying one payment to a loan.
type LoanPaymentResult struct {
	LoanID           string          `json:"loanID"`
	TransactionID    string          `json:"transactionID"`
	Reference        string          `json:"reference"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	LoanStatus       LoanStatus      `json:"loanStatus"`
}
