package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

var statusByCode = map[string]int{
	apperrors.CodeValidation:             http.StatusBadRequest,
	apperrors.CodeNotFound:               http.StatusNotFound,
	apperrors.CodeAccountNotFound:        http.StatusNotFound,
	apperrors.CodeLoanNotFound:           http.StatusNotFound,
	apperrors.CodeAccountInactive:        http.StatusConflict,
	apperrors.CodeLoanNotActive:          http.StatusConflict,
	apperrors.CodeInsufficientFunds:      http.StatusUnprocessableEntity,
	apperrors.CodeLoanOverpayment:        http.StatusUnprocessableEntity,
	apperrors.CodeIdempotencyKeyConflict: http.StatusUnprocessableEntity,
	apperrors.CodeConcurrencyConflict:    http.StatusConflict,
	apperrors.CodeInvalidTransition:      http.StatusConflict,
	apperrors.CodeDuplicate:              http.StatusConflict,
	apperrors.CodeForbidden:              http.StatusForbidden,
	apperrors.CodeGatewayTimeout:         http.StatusGatewayTimeout,
	apperrors.CodeGatewayFailure:         http.StatusBadGateway,
	apperrors.CodeInternal:               http.StatusInternalServerError,
}

// httpStatusFor maps a service error to its HTTP status and stable code.
func httpStatusFor(err error) (int, string) {
	code := apperrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return status, code
}

// respondError writes the failure envelope for err. Internal errors never leak their message.
func respondError(c *gin.Context, err error, msg string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status, code := httpStatusFor(err)
	middleware.SetErrorCode(c, code)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, slog.String("error", err.Error()), slog.String("code", code))
		if code == apperrors.CodeInternal {
			c.JSON(status, dto.Fail(code, msg))
			return
		}
	} else {
		logger.Warn(msg, slog.String("error", err.Error()), slog.String("code", code))
	}
	c.JSON(status, dto.Fail(code, err.Error()))
}

// respondBindError reports a malformed or invalid request body.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Invalid request", slog.String("error", err.Error()))
	middleware.SetErrorCode(c, apperrors.CodeValidation)
	c.JSON(http.StatusBadRequest, dto.Fail(apperrors.CodeValidation, "Invalid request: "+err.Error()))
}

// requireUser returns the authenticated user id or writes 401.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, dto.Fail("UNAUTHORIZED", "Unauthorized"))
		return "", false
	}
	return userID, true
}

var errInvalidIdempotencyKey = errors.New("an Idempotency-Key header of at most 255 characters is required")
