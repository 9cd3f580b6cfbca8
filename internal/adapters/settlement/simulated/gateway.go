// Package simulated provides an in-process settlement gateway for development and tests.
package simulated

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutcomeFunc decides what the correspondent bank does with req. A PENDING result must carry
// the eventual outcome in Eventual.
type OutcomeFunc func(req domain.SettlementRequest) Outcome

// Outcome is the initial answer to Initiate plus, for PENDING, the status later polls reveal.
type Outcome struct {
	Status   domain.SettlementStatus
	Eventual domain.SettlementStatus
}

// Fixed always answers with status; PENDING transfers later complete.
func Fixed(status domain.SettlementStatus) OutcomeFunc {
	return func(domain.SettlementRequest) Outcome {
		return Outcome{Status: status, Eventual: domain.SettlementCompleted}
	}
}

// Gateway settles transfers in memory. Account numbers of exactly ten digits resolve.
type Gateway struct {
	mu       sync.Mutex
	outcome  OutcomeFunc
	fee      decimal.Decimal
	bankName string
	settled  map[string]*domain.SettlementResult
	eventual map[string]domain.SettlementStatus
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithOutcome replaces the seeded default outcome.
func WithOutcome(fn OutcomeFunc) Option {
	return func(g *Gateway) { g.outcome = fn }
}

// WithFee sets the fee reported for completed transfers.
func WithFee(fee decimal.Decimal) Option {
	return func(g *Gateway) { g.fee = fee }
}

// NewGateway creates a Gateway. Without WithOutcome roughly 5% of transfers fail and 20% stay
// pending until polled, driven by a generator seeded with seed.
func NewGateway(seed int64, opts ...Option) *Gateway {
	g := &Gateway{
		outcome:  SeededOutcome(seed),
		fee:      decimal.Zero,
		bankName: "Simulated Correspondent Bank",
		settled:  make(map[string]*domain.SettlementResult),
		eventual: make(map[string]domain.SettlementStatus),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SeededOutcome draws outcomes from a deterministic generator.
func SeededOutcome(seed int64) OutcomeFunc {
	var mu sync.Mutex
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	draw := func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64()
	}
	return func(domain.SettlementRequest) Outcome {
		switch p := draw(); {
		case p < 0.05:
			return Outcome{Status: domain.SettlementFailed}
		case p < 0.25:
			eventual := domain.SettlementCompleted
			if draw() < 0.1 {
				eventual = domain.SettlementFailed
			}
			return Outcome{Status: domain.SettlementPending, Eventual: eventual}
		default:
			return Outcome{Status: domain.SettlementCompleted}
		}
	}
}

func (g *Gateway) VerifyDestination(ctx context.Context, accountNumber, bankCode string) (*domain.DestinationInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !isAccountNumber(accountNumber) {
		return nil, apperrors.Wrapf(apperrors.ErrAccountNotFound, "no account %s at bank %s", accountNumber, bankCode)
	}
	return &domain.DestinationInfo{
		AccountName: "Account holder " + accountNumber[len(accountNumber)-4:],
		BankName:    g.bankName,
	}, nil
}

func (g *Gateway) Initiate(ctx context.Context, req domain.SettlementRequest) (*domain.SettlementResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.settled[req.Reference]; ok {
		res := *existing
		return &res, nil
	}

	outcome := g.outcome(req)
	res := &domain.SettlementResult{Status: outcome.Status, ExternalReference: "SIM-" + uuid.NewString()}
	switch outcome.Status {
	case domain.SettlementCompleted:
		res.Fee = g.feeFor()
	case domain.SettlementPending:
		eventual := outcome.Eventual
		if eventual != domain.SettlementFailed {
			eventual = domain.SettlementCompleted
		}
		g.eventual[req.Reference] = eventual
	case domain.SettlementFailed:
	default:
		return nil, fmt.Errorf("%w: unsupported simulated status %q", apperrors.ErrExternalGatewayFailure, outcome.Status)
	}
	g.settled[req.Reference] = res
	out := *res
	return &out, nil
}

// PollStatus resolves a pending transfer to its eventual outcome. Unknown references are
// reported as FAILED since no funds were moved for them.
func (g *Gateway) PollStatus(ctx context.Context, reference string) (*domain.SettlementResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	res, ok := g.settled[reference]
	if !ok {
		return &domain.SettlementResult{Status: domain.SettlementFailed}, nil
	}
	if eventual, pending := g.eventual[reference]; pending {
		delete(g.eventual, reference)
		res.Status = eventual
		if eventual == domain.SettlementCompleted {
			res.Fee = g.feeFor()
		}
	}
	out := *res
	return &out, nil
}

func (g *Gateway) feeFor() *decimal.Decimal {
	if g.fee.IsZero() {
		return nil
	}
	fee := g.fee
	return &fee
}

func isAccountNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
