package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader names the header carrying the client's idempotency key.
const IdempotencyKeyHeader = "Idempotency-Key"

// transferHandler handles HTTP requests related to transfers.
type transferHandler struct {
	transferService portssvc.TransferSvc
}

func newTransferHandler(ts portssvc.TransferSvc) *transferHandler {
	return &transferHandler{transferService: ts}
}

// RegisterTransferRoutes registers routes related to transfers. mutating runs before the
// handlers of write routes (rate limiting).
func RegisterTransferRoutes(rg *gin.RouterGroup, transferService portssvc.TransferSvc, mutating ...gin.HandlerFunc) {
	h := newTransferHandler(transferService)

	transfers := rg.Group("/transfers")
	{
		transfers.POST("", chain(mutating, h.createTransfer)...)
		transfers.GET("/:reference", h.getTransfer)
		transfers.POST("/:reference/reverse", chain(mutating, h.reverseTransfer)...)
	}
}

// createTransfer godoc
// @Summary Transfer funds
// @Description Moves funds from one of the caller's accounts to another account at this bank or, with bankCode, at another bank. Executes at most once per Idempotency-Key.
// @Tags transfers
// @Accept  json
// @Produce  json
// @Param   Idempotency-Key header string true "Client generated idempotency key"
// @Param   transfer body dto.CreateTransferRequest true "Transfer details"
// @Success 201 {object} dto.APIResponse{data=dto.TransferData} "Transfer executed"
// @Success 200 {object} dto.APIResponse{data=dto.TransferData} "Replay of an earlier request"
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Failure 502 {object} dto.APIResponse
// @Security BearerAuth
// @Router /transfers [post]
func (h *transferHandler) createTransfer(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" || len(key) > 255 {
		respondBindError(c, errInvalidIdempotencyKey)
		return
	}

	var req dto.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	logger.Info("Received transfer request",
		slog.String("from_account_id", req.FromAccountID),
		slog.String("amount", req.Amount.String()),
		slog.String("currency", req.Currency))

	result, err := h.transferService.CreateTransfer(c.Request.Context(), userID, key, req)
	if err != nil {
		respondError(c, err, "Transfer failed")
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
		middleware.MarkReplayed(c)
	}
	c.JSON(status, dto.Ok(dto.ToTransferData(&result.Transaction)))
}

// getTransfer godoc
// @Summary Get a transfer
// @Description Retrieves a transfer the caller is a party to
// @Tags transfers
// @Produce  json
// @Param   reference path string true "Transfer reference"
// @Success 200 {object} dto.APIResponse{data=dto.TransactionResponse}
// @Failure 404 {object} dto.APIResponse
// @Security BearerAuth
// @Router /transfers/{reference} [get]
func (h *transferHandler) getTransfer(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	txn, err := h.transferService.GetTransfer(c.Request.Context(), userID, c.Param("reference"))
	if err != nil {
		respondError(c, err, "Failed to get transfer")
		return
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ToTransactionResponse(txn)))
}

// reverseTransfer godoc
// @Summary Reverse a transfer
// @Description Compensates a completed internal transfer with a new transaction in the opposite direction
// @Tags transfers
// @Produce  json
// @Param   reference path string true "Transfer reference"
// @Success 201 {object} dto.APIResponse{data=dto.TransactionResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Security BearerAuth
// @Router /transfers/{reference}/reverse [post]
func (h *transferHandler) reverseTransfer(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reversal, err := h.transferService.ReverseTransfer(c.Request.Context(), userID, c.Param("reference"))
	if err != nil {
		respondError(c, err, "Failed to reverse transfer")
		return
	}
	c.JSON(http.StatusCreated, dto.Ok(dto.ToTransactionResponse(reversal)))
}
