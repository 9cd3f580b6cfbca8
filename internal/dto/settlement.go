package dto

import (
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SettlementWebhookRequest is the payload the correspondent bank posts when a settlement resolves.
type SettlementWebhookRequest struct {
	Reference         string                  `json:"reference" binding:"required"`
	Status            domain.SettlementStatus `json:"status" binding:"required,oneof=PENDING COMPLETED FAILED"`
	ExternalReference string                  `json:"externalReference"`
	Fee               *decimal.Decimal        `json:"fee"`
}
