package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvcFacade) *accountHandler {
	return &accountHandler{accountService: as}
}

// RegisterAccountRoutes registers routes related to the caller's accounts.
func RegisterAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade, mutating ...gin.HandlerFunc) {
	h := newAccountHandler(accountService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", chain(mutating, h.createAccount)...)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:accountId", h.getAccount)
		accounts.GET("/:accountId/transactions", h.listTransactions)
	}
}

// RegisterAdminAccountRoutes registers back-office account routes. rg must already require the
// admin role.
func RegisterAdminAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade) {
	h := newAccountHandler(accountService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("/:accountId/deposit", h.deposit)
		accounts.PUT("/:accountId/status", h.updateStatus)
	}
}

// createAccount godoc
// @Summary Open an account
// @Description Opens a zero-balance account in the given currency for the caller
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   account body dto.CreateAccountRequest true "Account details"
// @Success 201 {object} dto.APIResponse{data=dto.AccountResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) createAccount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "Failed to create account")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Account created successfully", slog.String("account_id", account.AccountID))
	c.JSON(http.StatusCreated, dto.Ok(dto.ToAccountResponse(account)))
}

// getAccount godoc
// @Summary Get an account
// @Tags accounts
// @Produce  json
// @Param   accountId path string true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.AccountResponse}
// @Failure 404 {object} dto.APIResponse
// @Security BearerAuth
// @Router /accounts/{accountId} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	account, err := h.accountService.GetAccount(c.Request.Context(), userID, c.Param("accountId"))
	if err != nil {
		respondError(c, err, "Failed to get account")
		return
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ToAccountResponse(account)))
}

// listAccounts godoc
// @Summary List the caller's accounts
// @Tags accounts
// @Produce  json
// @Success 200 {object} dto.APIResponse{data=dto.ListAccountsResponse}
// @Security BearerAuth
// @Router /accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	accounts, err := h.accountService.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ListAccountsResponse{Accounts: dto.ToListAccountResponse(accounts)}))
}

// listTransactions godoc
// @Summary List an account's transactions
// @Description Newest first, paged with an opaque nextToken
// @Tags accounts
// @Produce  json
// @Param   accountId path string true "Account ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.APIResponse{data=dto.ListTransactionsResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Security BearerAuth
// @Router /accounts/{accountId}/transactions [get]
func (h *accountHandler) listTransactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	var token *string
	if params.NextToken != "" {
		token = &params.NextToken
	}

	txns, next, err := h.accountService.ListTransactions(c.Request.Context(), userID, c.Param("accountId"), params.Limit, token)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionResponses(txns),
		NextToken:    next,
	}))
}

// deposit godoc
// @Summary Deposit into an account
// @Description Credits an account from outside the ledger. An optional Idempotency-Key deduplicates retries.
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   accountId path string true "Account ID"
// @Param   Idempotency-Key header string false "Client generated idempotency key"
// @Param   deposit body dto.DepositRequest true "Deposit details"
// @Success 201 {object} dto.APIResponse{data=dto.TransferData}
// @Success 200 {object} dto.APIResponse{data=dto.TransferData} "Replay of an earlier request"
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Security BearerAuth
// @Router /admin/accounts/{accountId}/deposit [post]
func (h *accountHandler) deposit(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}
	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > 255 {
		respondBindError(c, errInvalidIdempotencyKey)
		return
	}
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.accountService.Deposit(c.Request.Context(), adminID, key, c.Param("accountId"), req)
	if err != nil {
		respondError(c, err, "Deposit failed")
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
		middleware.MarkReplayed(c)
	}
	c.JSON(status, dto.Ok(dto.ToTransferData(&result.Transaction)))
}

// updateStatus godoc
// @Summary Change an account's status
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   accountId path string true "Account ID"
// @Param   status body dto.UpdateAccountStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.AccountResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Security BearerAuth
// @Router /admin/accounts/{accountId}/status [put]
func (h *accountHandler) updateStatus(c *gin.Context) {
	adminID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.UpdateAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	account, err := h.accountService.UpdateStatus(c.Request.Context(), adminID, c.Param("accountId"), req.Status)
	if err != nil {
		respondError(c, err, "Failed to update account status")
		return
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ToAccountResponse(account)))
}
