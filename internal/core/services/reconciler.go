package services

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
)

// Reconciler is the background worker that resolves settlements stuck awaiting an outcome
// and purges expired idempotency records.
type Reconciler struct {
	BaseService
	settlement  portssvc.SettlementSvc
	idempotency portssvc.IdempotencySvc
	interval    time.Duration
}

// NewReconciler creates a Reconciler ticking every interval.
func NewReconciler(settlement portssvc.SettlementSvc, idem portssvc.IdempotencySvc, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{settlement: settlement, idempotency: idem, interval: interval}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.LogInfo(ctx, "Reconciliation worker started", slog.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.LogInfo(ctx, "Reconciliation worker stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and purge.
func (r *Reconciler) RunOnce(ctx context.Context) {
	if resolved, err := r.settlement.Sweep(ctx); err != nil {
		r.LogError(ctx, err, "Settlement sweep failed")
	} else if resolved > 0 {
		r.LogInfo(ctx, "Settlements resolved by sweep", slog.Int("resolved", resolved))
	}
	if _, err := r.idempotency.PurgeExpired(ctx); err != nil {
		r.LogError(ctx, err, "Idempotency purge failed")
	}
}
