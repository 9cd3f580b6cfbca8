package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// contextKey is used for values stored in the request context.
// Using a custom type prevents collisions.
type contextKey string

const (
	loggerCtxKey = contextKey("logger")
	userIDKey    = contextKey("userID")
	roleKey      = contextKey("role")
)

// RoleAdmin is the role claim that unlocks /admin routes.
const RoleAdmin = "admin"

// GetUserIDFromContext retrieves the authenticated user ID.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userIDVal, exists := c.Get(string(userIDKey)); exists {
		userID, ok := userIDVal.(string)
		return userID, ok && userID != ""
	}
	return UserIDFromCtx(c.Request.Context())
}

// UserIDFromCtx retrieves the authenticated user ID from a standard context.
func UserIDFromCtx(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// GetRoleFromContext returns the role claim of the authenticated caller, if any.
func GetRoleFromContext(c *gin.Context) string {
	role, _ := c.Request.Context().Value(roleKey).(string)
	return role
}

// WithUser returns a copy of ctx carrying userID and role, as the auth middleware stores them.
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}
