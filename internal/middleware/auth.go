package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims issued by the identity collaborator.
type Claims = utils.TokenClaims

// AuthMiddleware creates a Gin middleware handler that validates HS256 JWT bearer tokens.
// The subject is the user id; an optional role claim marks administrators.
func AuthMiddleware(jwtSecret, issuer string) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.Warn("Authorization header format invalid")
			unauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			logger.Warn("Invalid token", slog.Any("error", err))
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
				msg = "Token not valid yet"
			}
			unauthorized(c, msg)
			return
		}

		userID := claims.Subject
		if userID == "" {
			logger.Error("User ID (subject) missing from valid token")
			unauthorized(c, "Invalid token claims")
			return
		}

		enrichedLogger := logger.With(slog.String("user_id", userID))
		ctx := WithUser(c.Request.Context(), userID, claims.Role)
		c.Request = c.Request.WithContext(WithLogger(ctx, enrichedLogger))
		c.Set(string(userIDKey), userID)

		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role claim.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRoleFromContext(c) != RoleAdmin {
			GetLoggerFromCtx(c.Request.Context()).Warn("Admin route denied")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Fail("FORBIDDEN", "Administrator role required"))
			return
		}
		c.Next()
	}
}
