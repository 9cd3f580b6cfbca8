package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"

	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Settlement-Signature"

const maxWebhookBody = 1 << 20

// settlementHandler receives out-of-band settlement results from the correspondent bank.
type settlementHandler struct {
	settlementService portssvc.SettlementSvc
	secret            []byte
}

// RegisterSettlementRoutes registers the webhook. It is authenticated by signature, not JWT.
// An empty secret rejects every delivery.
func RegisterSettlementRoutes(r gin.IRouter, settlementService portssvc.SettlementSvc, secret string) {
	h := &settlementHandler{settlementService: settlementService, secret: []byte(secret)}
	r.POST("/settlements/webhook", h.webhook)
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *settlementHandler) verify(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// webhook godoc
// @Summary Settlement result webhook
// @Description Applies a settlement outcome reported by the correspondent bank. Deliveries are idempotent.
// @Tags settlements
// @Accept  json
// @Produce  json
// @Param   X-Settlement-Signature header string true "Hex HMAC-SHA256 of the body"
// @Param   result body dto.SettlementWebhookRequest true "Settlement result"
// @Success 200 {object} dto.APIResponse{data=dto.TransactionResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /settlements/webhook [post]
func (h *settlementHandler) webhook(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondBindError(c, err)
		return
	}
	if !h.verify(body, c.GetHeader(SignatureHeader)) {
		logger.Warn("Rejected settlement webhook with bad signature")
		c.JSON(http.StatusUnauthorized, dto.Fail("INVALID_SIGNATURE", "Invalid settlement signature"))
		return
	}

	var req dto.SettlementWebhookRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		respondBindError(c, err)
		return
	}
	logger = logger.With(slog.String("reference", req.Reference), slog.String("status", string(req.Status)))
	logger.Info("Received settlement webhook")

	txn, err := h.settlementService.Reconcile(c.Request.Context(), req.Reference, req.Status, req.ExternalReference, req.Fee)
	if err != nil {
		respondError(c, err, "Failed to apply settlement result")
		return
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ToTransactionResponse(txn)))
}
