package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWT(t *testing.T) {
	signed, err := GenerateJWT("user-1", "admin", "secret", "ledger", time.Hour)
	require.NoError(t, err)

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer("ledger"))
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	_, err = GenerateJWT("", "", "secret", "ledger", time.Hour)
	assert.Error(t, err)
}
