package domain

import "github.com/shopspring/decimal"

// SettlementStatus is the status reported by the external settlement collaborator.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "PENDING"
	SettlementCompleted SettlementStatus = "COMPLETED"
	SettlementFailed    SettlementStatus = "FAILED"
)

// IsValid reports whether s is a status the collaborator may report.
func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementPending, SettlementCompleted, SettlementFailed:
		return true
	}
	return false
}

// DestinationInfo describes a verified account at another bank.
type DestinationInfo struct {
	AccountName string `json:"accountName"`
	BankName    string `json:"bankName"`
}

// SettlementRequest is what the engine asks the correspondent bank to move.
type SettlementRequest struct {
	Reference     string          `json:"reference"`
	AccountNumber string          `json:"accountNumber"`
	BankCode      string          `json:"bankCode"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyCode  string          `json:"currency"`
	Narration     string          `json:"narration,omitempty"`
}

// SettlementResult is the collaborator's view of a settlement at a point in time.
type SettlementResult struct {
	Status            SettlementStatus `json:"status"`
	ExternalReference string           `json:"externalReference,omitempty"`
	Fee               *decimal.Decimal `json:"fee,omitempty"`
}
