package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccount_WithDelta(t *testing.T) {
	base := domain.Account{
		Balance:          decimal.RequireFromString("100.00"),
		AvailableBalance: decimal.RequireFromString("80.00"),
	}

	tests := []struct {
		name           string
		balanceDelta   string
		availableDelta string
		wantOK         bool
		wantBalance    string
		wantAvailable  string
	}{
		{"debit within available", "-50.00", "-50.00", true, "50", "30"},
		{"debit exactly available", "-80.00", "-80.00", true, "20", "0"},
		{"overdraw available", "-80.01", "-80.01", false, "19.99", "-0.01"},
		{"credit", "25.00", "25.00", true, "125", "105"},
		{"available above balance", "0", "20.01", false, "100", "100.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := base.WithDelta(decimal.RequireFromString(tt.balanceDelta), decimal.RequireFromString(tt.availableDelta))
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, decimal.RequireFromString(tt.wantBalance).Equal(next.Balance), "balance %s", next.Balance)
			assert.True(t, decimal.RequireFromString(tt.wantAvailable).Equal(next.AvailableBalance), "available %s", next.AvailableBalance)
		})
	}

	// The receiver is never mutated.
	assert.True(t, decimal.RequireFromString("100.00").Equal(base.Balance))
}

func TestAccount_CanTransitionTo(t *testing.T) {
	active := domain.Account{Status: domain.AccountActive, Balance: decimal.NewFromInt(10)}
	assert.True(t, active.CanTransitionTo(domain.AccountSuspended))
	assert.False(t, active.CanTransitionTo(domain.AccountActive))
	assert.False(t, active.CanTransitionTo(domain.AccountClosed), "non-zero balance cannot close")
	assert.False(t, active.CanTransitionTo("FROZEN"))

	empty := domain.Account{Status: domain.AccountInactive, Balance: decimal.Zero}
	assert.True(t, empty.CanTransitionTo(domain.AccountClosed))

	closed := domain.Account{Status: domain.AccountClosed}
	assert.False(t, closed.CanTransitionTo(domain.AccountActive))
}

func TestTransactionStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, domain.StatusPending.CanTransitionTo(domain.StatusProcessing))
	assert.True(t, domain.StatusPending.CanTransitionTo(domain.StatusCompleted))
	assert.True(t, domain.StatusProcessing.CanTransitionTo(domain.StatusCompleted))
	assert.True(t, domain.StatusProcessing.CanTransitionTo(domain.StatusFailed))
	assert.True(t, domain.StatusCompleted.CanTransitionTo(domain.StatusReversed))

	assert.False(t, domain.StatusCompleted.CanTransitionTo(domain.StatusFailed))
	assert.False(t, domain.StatusFailed.CanTransitionTo(domain.StatusCompleted))
	assert.False(t, domain.StatusReversed.CanTransitionTo(domain.StatusCompleted))
	assert.False(t, domain.StatusProcessing.CanTransitionTo(domain.StatusReversed))
}

func TestLoanStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, domain.LoanPending.CanTransitionTo(domain.LoanApproved))
	assert.True(t, domain.LoanApproved.CanTransitionTo(domain.LoanActive))
	assert.True(t, domain.LoanActive.CanTransitionTo(domain.LoanPaidOff))
	assert.True(t, domain.LoanActive.CanTransitionTo(domain.LoanDefaulted))
	assert.False(t, domain.LoanPending.CanTransitionTo(domain.LoanActive))
	assert.False(t, domain.LoanPaidOff.CanTransitionTo(domain.LoanActive))
}

func TestDeriveReference(t *testing.T) {
	a := domain.DeriveReference(domain.PrefixTransfer, "user-1:POST /transfers", "K1")
	b := domain.DeriveReference(domain.PrefixTransfer, "user-1:POST /transfers", "K1")
	c := domain.DeriveReference(domain.PrefixTransfer, "user-2:POST /transfers", "K1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^TRF-[0-9A-F]{32}$`, a)
	assert.Equal(t, a+"-REV", domain.ReversalReference(a))
	assert.Equal(t, a+"-FEE", domain.FeeReference(a))
}

func TestIdempotencyRecord_IsStale(t *testing.T) {
	now := time.Now()
	rec := domain.IdempotencyRecord{State: domain.IdempotencyInProgress, LockedUntil: now.Add(-time.Second)}
	assert.True(t, rec.IsStale(now))

	rec.LockedUntil = now.Add(time.Minute)
	assert.False(t, rec.IsStale(now))

	rec.State = domain.IdempotencyCompleted
	rec.LockedUntil = now.Add(-time.Hour)
	assert.False(t, rec.IsStale(now))
}
