package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	// Test case 1: Standard time value
	createdAt := time.Date(2023, 5, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(createdAt, "0b7c3c1e-txn")
	assert.NotEmpty(t, token, "Token should not be empty")

	cursor, err := DecodeToken(token)
	require.NoError(t, err, "Decoding should not return an error")
	assert.Equal(t, createdAt, cursor.CreatedAt, "Created at time should match after decode")
	assert.Equal(t, "0b7c3c1e-txn", cursor.ID)

	// Test case 2: Zero time value
	zeroCursor, err := DecodeToken(EncodeToken(time.Time{}, "id"))
	require.NoError(t, err, "Decoding zero time should not return an error")
	assert.Equal(t, time.Time{}, zeroCursor.CreatedAt)

	// Test case 3: Current time value
	now := time.Now().UTC()
	nowCursor, err := DecodeToken(EncodeToken(now, "id"))
	require.NoError(t, err)
	assert.True(t, now.Equal(nowCursor.CreatedAt), "Current time should match after decode")
}

func TestDecodeTokenError(t *testing.T) {
	// Test invalid base64
	_, err := DecodeToken("this is not base64!")
	assert.Error(t, err, "Should return an error for invalid base64")
	assert.Contains(t, err.Error(), "base64 decode", "Error should mention base64 decoding")

	// Test invalid format (missing separator)
	_, err = DecodeToken(base64.StdEncoding.EncodeToString([]byte("no-separator")))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "split")

	// Test invalid time
	_, err = DecodeToken(base64.StdEncoding.EncodeToString([]byte("yesterday|id")))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "created_at parse")
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-5))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(10_000))
}

func TestCursor_IsAfter(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := Cursor{CreatedAt: t0, ID: "m"}

	assert.True(t, c.IsAfter(t0.Add(-time.Second), "z"), "older rows come after")
	assert.False(t, c.IsAfter(t0.Add(time.Second), "a"), "newer rows come before")
	assert.True(t, c.IsAfter(t0, "a"), "ties broken by id descending")
	assert.False(t, c.IsAfter(t0, "m"))
}
