package middleware

import (
	"net/http"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail("UNAUTHORIZED", msg))
}

// AbortWithCode aborts with a failure envelope carrying code.
func AbortWithCode(c *gin.Context, status int, code, msg string) {
	if code == "" {
		code = apperrors.CodeInternal
	}
	SetErrorCode(c, code)
	c.AbortWithStatusJSON(status, dto.Fail(code, msg))
}
