package pgsql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation}, apperrors.ErrDuplicate},
		{"balance check violation", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "accounts_balance_non_negative"}, apperrors.ErrInsufficientFunds},
		{"other check violation", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "transactions_amount_positive"}, apperrors.ErrValidation},
		{"serialization failure", &pgconn.PgError{Code: pgSerializationFailure}, apperrors.ErrConcurrencyConflict},
		{"deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgDeadlockDetected}), apperrors.ErrConcurrencyConflict},
		{"lock timeout", &pgconn.PgError{Code: pgLockNotAvailable}, apperrors.ErrConcurrencyConflict},
		{"deadline", context.DeadlineExceeded, apperrors.ErrConcurrencyConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapPgError(tt.err, "op"), tt.want)
		})
	}

	plain := errors.New("connection refused")
	mapped := mapPgError(plain, "op")
	assert.ErrorIs(t, mapped, plain)
	assert.NotErrorIs(t, mapped, apperrors.ErrConcurrencyConflict)
	assert.Nil(t, mapPgError(nil, "op"))
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedUnique([]string{"c", "a", "b", "a"}))
	assert.Empty(t, sortedUnique(nil))
}
