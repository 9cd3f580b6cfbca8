package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/platform/metrics"
)

// Notifier hands transaction events to the publisher on a short-lived goroutine.
// Failures are logged and dropped.
type Notifier struct {
	BaseService
	publisher portssvc.EventPublisher
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewNotifier creates a Notifier. A nil publisher disables notifications.
func NewNotifier(publisher portssvc.EventPublisher, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{publisher: publisher, timeout: timeout}
}

// Notify publishes an event for txn when it has reached COMPLETED or FAILED.
func (n *Notifier) Notify(ctx context.Context, userID string, txn domain.Transaction) {
	if n == nil || n.publisher == nil {
		return
	}
	if txn.Status != domain.StatusCompleted && txn.Status != domain.StatusFailed {
		return
	}
	event := domain.NewTransactionEvent(userID, txn)
	logger := n.GetLogger(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		if err := n.publisher.PublishTransactionEvent(pubCtx, event); err != nil {
			metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
			logger.Warn("Failed to publish transaction event",
				slog.String("error", err.Error()),
				slog.String("reference", event.Reference))
			return
		}
		metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
	}()
}

// Wait blocks until in-flight publishes have finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
