package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccountNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		n, err := GenerateAccountNumber()
		require.NoError(t, err)
		require.Len(t, n, AccountNumberLength)
		assert.NotEqual(t, byte('0'), n[0])
		for _, c := range n {
			assert.True(t, c >= '0' && c <= '9', "non-digit in %s", n)
		}
	}
}
