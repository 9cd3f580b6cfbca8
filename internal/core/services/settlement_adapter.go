package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/platform/metrics"
)

// SettlementAdapter bounds every gateway call with a timeout and folds gateway errors into
// apperrors.ErrExternalGatewayTimeout or apperrors.ErrExternalGatewayFailure.
type SettlementAdapter struct {
	BaseService
	gateway portssvc.SettlementGateway
	timeout time.Duration
}

// NewSettlementAdapter wraps gateway. A non-positive timeout defaults to 10s.
func NewSettlementAdapter(gateway portssvc.SettlementGateway, timeout time.Duration) *SettlementAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SettlementAdapter{gateway: gateway, timeout: timeout}
}

// Verify resolves a destination at another bank.
func (a *SettlementAdapter) Verify(ctx context.Context, accountNumber, bankCode string) (*domain.DestinationInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	info, err := a.gateway.VerifyDestination(callCtx, accountNumber, bankCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			metrics.SettlementRequestsTotal.WithLabelValues("verify", "not_found").Inc()
			return nil, err
		}
		return nil, a.classify(ctx, callCtx, "verify", err)
	}
	metrics.SettlementRequestsTotal.WithLabelValues("verify", "ok").Inc()
	return info, nil
}

// Submit initiates a settlement. On timeout it returns a PENDING result together with
// apperrors.ErrExternalGatewayTimeout; the outcome is then learned out of band.
func (a *SettlementAdapter) Submit(ctx context.Context, req domain.SettlementRequest) (*domain.SettlementResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.gateway.Initiate(callCtx, req)
	if err != nil {
		err = a.classify(ctx, callCtx, "initiate", err)
		if errors.Is(err, apperrors.ErrExternalGatewayTimeout) {
			return &domain.SettlementResult{Status: domain.SettlementPending}, err
		}
		return nil, err
	}
	if result == nil || !result.Status.IsValid() {
		metrics.SettlementRequestsTotal.WithLabelValues("initiate", "invalid").Inc()
		return nil, fmt.Errorf("%w: gateway returned an unknown status", apperrors.ErrExternalGatewayFailure)
	}
	metrics.SettlementRequestsTotal.WithLabelValues("initiate", string(result.Status)).Inc()
	a.LogInfo(ctx, "Settlement submitted",
		slog.String("reference", req.Reference),
		slog.String("status", string(result.Status)))
	return result, nil
}

// Poll asks the gateway for the current status of reference.
func (a *SettlementAdapter) Poll(ctx context.Context, reference string) (*domain.SettlementResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.gateway.PollStatus(callCtx, reference)
	if err != nil {
		return nil, a.classify(ctx, callCtx, "poll", err)
	}
	if result == nil || !result.Status.IsValid() {
		metrics.SettlementRequestsTotal.WithLabelValues("poll", "invalid").Inc()
		return nil, fmt.Errorf("%w: gateway returned an unknown status", apperrors.ErrExternalGatewayFailure)
	}
	metrics.SettlementRequestsTotal.WithLabelValues("poll", string(result.Status)).Inc()
	return result, nil
}

func (a *SettlementAdapter) classify(ctx, callCtx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrExternalGatewayTimeout),
		errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && callCtx.Err() != nil:
		metrics.SettlementRequestsTotal.WithLabelValues(op, "timeout").Inc()
		a.LogWarn(ctx, "Settlement gateway timed out", slog.String("operation", op))
		return fmt.Errorf("%w: %s", apperrors.ErrExternalGatewayTimeout, op)
	case errors.Is(err, apperrors.ErrExternalGatewayFailure):
		metrics.SettlementRequestsTotal.WithLabelValues(op, "error").Inc()
		return err
	default:
		metrics.SettlementRequestsTotal.WithLabelValues(op, "error").Inc()
		a.LogError(ctx, err, "Settlement gateway call failed", slog.String("operation", op))
		return fmt.Errorf("%w: %s: %v", apperrors.ErrExternalGatewayFailure, op, err)
	}
}
