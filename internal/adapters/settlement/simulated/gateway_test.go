package simulated

import (
	"context"
	"testing"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(ref string) domain.SettlementRequest {
	return domain.SettlementRequest{
		Reference:     ref,
		AccountNumber: "0123456789",
		BankCode:      "OTHER",
		Amount:        decimal.RequireFromString("25.00"),
		CurrencyCode:  "USD",
	}
}

func TestGateway_VerifyDestination(t *testing.T) {
	g := NewGateway(1)
	ctx := context.Background()

	info, err := g.VerifyDestination(ctx, "0123456789", "OTHER")
	require.NoError(t, err)
	assert.Equal(t, "Account holder 6789", info.AccountName)

	for _, bad := range []string{"", "123", "01234567890", "01234abcde"} {
		_, err := g.VerifyDestination(ctx, bad, "OTHER")
		assert.ErrorIs(t, err, apperrors.ErrAccountNotFound, bad)
	}
}

func TestGateway_FixedOutcomes(t *testing.T) {
	ctx := context.Background()
	fee := decimal.RequireFromString("1.50")

	completed := NewGateway(1, WithOutcome(Fixed(domain.SettlementCompleted)), WithFee(fee))
	res, err := completed.Initiate(ctx, request("R1"))
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementCompleted, res.Status)
	require.NotNil(t, res.Fee)
	assert.True(t, res.Fee.Equal(fee))
	assert.NotEmpty(t, res.ExternalReference)

	again, err := completed.Initiate(ctx, request("R1"))
	require.NoError(t, err)
	assert.Equal(t, res.ExternalReference, again.ExternalReference, "initiate is idempotent per reference")

	failed := NewGateway(1, WithOutcome(Fixed(domain.SettlementFailed)))
	res, err = failed.Initiate(ctx, request("R2"))
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementFailed, res.Status)
	assert.Nil(t, res.Fee)
}

func TestGateway_PendingResolvesOnPoll(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(1, WithOutcome(func(domain.SettlementRequest) Outcome {
		return Outcome{Status: domain.SettlementPending, Eventual: domain.SettlementFailed}
	}))

	res, err := g.Initiate(ctx, request("R3"))
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementPending, res.Status)

	polled, err := g.PollStatus(ctx, "R3")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementFailed, polled.Status)

	unknown, err := g.PollStatus(ctx, "never-sent")
	require.NoError(t, err)
	assert.Equal(t, domain.SettlementFailed, unknown.Status)
}

func TestGateway_UnsupportedOutcome(t *testing.T) {
	g := NewGateway(1, WithOutcome(Fixed("LOST")))
	_, err := g.Initiate(context.Background(), request("R4"))
	assert.ErrorIs(t, err, apperrors.ErrExternalGatewayFailure)
}

func TestGateway_CancelledContext(t *testing.T) {
	g := NewGateway(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Initiate(ctx, request("R5"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeededOutcome_Distribution(t *testing.T) {
	outcome := SeededOutcome(42)
	counts := map[domain.SettlementStatus]int{}
	const n = 2000
	for i := 0; i < n; i++ {
		counts[outcome(request("x")).Status]++
	}

	assert.InDelta(t, 0.05*n, counts[domain.SettlementFailed], 0.03*n)
	assert.InDelta(t, 0.20*n, counts[domain.SettlementPending], 0.05*n)
	assert.InDelta(t, 0.75*n, counts[domain.SettlementCompleted], 0.06*n)

	a, b := SeededOutcome(7), SeededOutcome(7)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a(request("x")), b(request("x")))
	}
}
