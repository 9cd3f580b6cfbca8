package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(subject, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "ledger-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newRouter() *gin.Engine {
	r := gin.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r.Use(StructuredLoggingMiddleware(logger))
	api := r.Group("/api", AuthMiddleware(testSecret, "ledger-test"))
	api.GET("/me", func(c *gin.Context) {
		userID, _ := GetUserIDFromContext(c)
		ctxUser, _ := UserIDFromCtx(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user": userID, "ctxUser": ctxUser, "role": GetRoleFromContext(c)})
	})
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func call(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	t.Run("valid token", func(t *testing.T) {
		w := call(r, "/api/me", signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", "")))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user":"user-1","ctxUser":"user-1","role":""}`, w.Body.String())
	})

	cases := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("user-1", ""))},
		{"wrong algorithm", signToken(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("user-1", ""))},
		{"no subject", signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("", ""))},
		{"wrong issuer", func() string {
			c := validClaims("user-1", "")
			c.Issuer = "someone-else"
			return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"expired", func() string {
			c := validClaims("user-1", "")
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := call(r, "/api/me", tc.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter()

	w := call(r, "/api/admin", signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", "")))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(r, "/api/admin", signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("ops-1", RoleAdmin)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStructuredLoggingMiddleware_RequestID(t *testing.T) {
	r := newRouter()

	w := call(r, "/api/me", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestGetLoggerFromCtx_Fallback(t *testing.T) {
	assert.Same(t, slog.Default(), GetLoggerFromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestRateLimit(t *testing.T) {
	lim, err := NewLimiter("2-M")
	require.NoError(t, err)

	r := gin.New()
	r.Use(RateLimit(lim))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, call(r, "/", "").Code)
	assert.Equal(t, http.StatusOK, call(r, "/", "").Code)
	w := call(r, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	_, err = NewLimiter("lots")
	assert.Error(t, err)
}
