package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// loanHandler handles HTTP requests related to loans.
type loanHandler struct {
	loanService portssvc.LoanSvcFacade
}

func newLoanHandler(ls portssvc.LoanSvcFacade) *loanHandler {
	return &loanHandler{loanService: ls}
}

// RegisterLoanRoutes registers the borrower facing loan routes.
func RegisterLoanRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade, mutating ...gin.HandlerFunc) {
	h := newLoanHandler(loanService)

	loans := rg.Group("/loans")
	{
		loans.POST("", chain(mutating, h.applyForLoan)...)
		loans.GET("", h.listLoans)
		loans.GET("/:loanId", h.getLoan)
		loans.POST("/:loanId/payment", chain(mutating, h.applyPayment)...)
	}
}

// RegisterAdminLoanRoutes registers loan servicing routes. rg must already require the admin role.
func RegisterAdminLoanRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade) {
	h := newLoanHandler(loanService)

	loans := rg.Group("/loans")
	{
		loans.POST("/:loanId/approve", h.transition(loanService.ApproveLoan, "approve"))
		loans.POST("/:loanId/disburse", h.transition(loanService.DisburseLoan, "disburse"))
		loans.POST("/:loanId/default", h.transition(loanService.MarkDefaulted, "default"))
	}
}

// applyPayment godoc
// @Summary Pay towards a loan
// @Description Debits the account and reduces the loan's outstanding balance in one atomic step. An optional Idempotency-Key deduplicates retries.
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   loanId path string true "Loan ID"
// @Param   Idempotency-Key header string false "Client generated idempotency key"
// @Param   payment body dto.LoanPaymentRequest true "Payment details"
// @Success 200 {object} dto.APIResponse{data=dto.LoanPaymentResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Security BearerAuth
// @Router /loans/{loanId}/payment [post]
func (h *loanHandler) applyPayment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > 255 {
		respondBindError(c, errInvalidIdempotencyKey)
		return
	}

	var req dto.LoanPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	loanID := c.Param("loanId")
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Received loan payment",
		slog.String("loan_id", loanID),
		slog.String("amount", req.Amount.String()))

	result, replayed, err := h.loanService.ApplyPayment(c.Request.Context(), userID, key, loanID, req)
	if err != nil {
		respondError(c, err, "Loan payment failed")
		return
	}
	if replayed {
		middleware.MarkReplayed(c)
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ToLoanPaymentResponse(result)))
}

// applyForLoan godoc
// @Summary Apply for a loan
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   loan body dto.ApplyForLoanRequest true "Loan application"
// @Success 201 {object} dto.APIResponse{data=dto.LoanResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Security BearerAuth
// @Router /loans [post]
func (h *loanHandler) applyForLoan(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req dto.ApplyForLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	loan, err := h.loanService.ApplyForLoan(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "Loan application failed")
		return
	}
	c.JSON(http.StatusCreated, dto.Ok(dto.ToLoanResponse(loan)))
}

// getLoan godoc
// @Summary Get a loan
// @Tags loans
// @Produce  json
// @Param   loanId path string true "Loan ID"
// @Success 200 {object} dto.APIResponse{data=dto.LoanResponse}
// @Failure 404 {object} dto.APIResponse
// @Security BearerAuth
// @Router /loans/{loanId} [get]
func (h *loanHandler) getLoan(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	loan, err := h.loanService.GetLoan(c.Request.Context(), userID, c.Param("loanId"))
	if err != nil {
		respondError(c, err, "Failed to get loan")
		return
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ToLoanResponse(loan)))
}

// listLoans godoc
// @Summary List the caller's loans
// @Tags loans
// @Produce  json
// @Success 200 {object} dto.APIResponse{data=[]dto.LoanResponse}
// @Security BearerAuth
// @Router /loans [get]
func (h *loanHandler) listLoans(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	loans, err := h.loanService.ListLoans(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list loans")
		return
	}
	c.JSON(http.StatusOK, dto.Ok(dto.ToListLoanResponse(loans)))
}

type loanTransition func(ctx context.Context, adminID, loanID string) (*domain.Loan, error)

// transition godoc
// @Summary Approve, disburse or default a loan
// @Tags admin
// @Produce  json
// @Param   loanId path string true "Loan ID"
// @Success 200 {object} dto.APIResponse{data=dto.LoanResponse}
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Security BearerAuth
// @Router /admin/loans/{loanId}/approve [post]
// @Router /admin/loans/{loanId}/disburse [post]
// @Router /admin/loans/{loanId}/default [post]
func (h *loanHandler) transition(apply loanTransition, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := requireUser(c)
		if !ok {
			return
		}
		loanID := c.Param("loanId")
		loan, err := apply(c.Request.Context(), adminID, loanID)
		if err != nil {
			respondError(c, err, "Failed to "+action+" loan")
			return
		}
		middleware.GetLoggerFromCtx(c.Request.Context()).Info("Loan transitioned",
			slog.String("loan_id", loanID),
			slog.String("action", action),
			slog.String("status", string(loan.Status)))
		c.JSON(http.StatusOK, dto.Ok(dto.ToLoanResponse(loan)))
	}
}
