package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})

	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transfers_total",
		Help: "Transfers executed, labeled by route (internal, external) and outcome",
	}, []string{"route", "outcome"})

	LoanPaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_loan_payments_total",
		Help: "Loan payments applied, labeled by outcome",
	}, []string{"outcome"})

	IdempotencyOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_idempotency_outcomes_total",
		Help: "Idempotency Begin outcomes (fresh, replay, conflict, reclaimed, timeout)",
	}, []string{"outcome"})

	LedgerRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_unit_retries_total",
		Help: "Atomic units retried after a concurrency conflict",
	})

	SettlementRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_settlement_requests_total",
		Help: "Calls to the settlement gateway, labeled by operation and result",
	}, []string{"operation", "result"})

	ReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_reconciliations_total",
		Help: "Settlement outcomes applied out of band, labeled by source and status",
	}, []string{"source", "status"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_published_total",
		Help: "Notification events handed to the publisher, labeled by result",
	}, []string{"result"})
)
