package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// AccountNumberLength is the number of digits in a customer-facing account number.
const AccountNumberLength = 10

// GenerateAccountNumber returns a random numeric account number that never starts with 0.
func GenerateAccountNumber() (string, error) {
	digits := make([]byte, AccountNumberLength)
	for i := range digits {
		upper := int64(10)
		offset := int64(0)
		if i == 0 {
			upper, offset = 9, 1
		}
		n, err := rand.Int(rand.Reader, big.NewInt(upper))
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64() + offset)
	}
	return string(digits), nil
}
