package services

import (
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/platform/config"
)

// Collaborators are the external systems the services talk to.
type Collaborators struct {
	Gateway  portssvc.SettlementGateway
	Notifier *Notifier
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, collab Collaborators) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Idempotency first since every mutating service depends on it
	idem := NewIdempotencyService(
		repos.Idempotency,
		WithIdempotencyTTL(cfg.IdempotencyTTL),
		WithIdempotencyLockDuration(cfg.IdempotencyLockDuration),
		WithIdempotencyWaitTimeout(cfg.IdempotencyWaitTimeout),
	)
	container.Idempotency = idem

	adapter := NewSettlementAdapter(collab.Gateway, cfg.SettlementTimeout)
	settlement := NewSettlementService(
		repos.Ledger,
		adapter,
		WithSweepPolicy(cfg.ReconcileMinAge, cfg.ReconcileBatchSize, cfg.ReconcileConcurrency),
		WithSettlementNotifier(collab.Notifier),
		WithSettlementMaxRetries(cfg.LedgerMaxRetries),
	)
	container.Settlement = settlement

	container.Transfer = NewTransferService(
		repos.Ledger,
		idem,
		cfg.BankCode,
		WithExternalSettlement(adapter, settlement),
		WithTransferNotifier(collab.Notifier),
		WithTransferMaxRetries(cfg.LedgerMaxRetries),
	)

	container.Account = NewAccountService(
		repos.Ledger,
		WithAccountIdempotency(idem),
		WithAccountNotifier(collab.Notifier),
		WithAccountMaxRetries(cfg.LedgerMaxRetries),
	)

	container.Loan = NewLoanService(
		repos.Ledger,
		idem,
		WithLoanNotifier(collab.Notifier),
		WithLoanMaxRetries(cfg.LedgerMaxRetries),
	)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade = (*accountService)(nil)
	_ portssvc.TransferSvc      = (*TransferService)(nil)
	_ portssvc.LoanSvcFacade    = (*LoanService)(nil)
	_ portssvc.SettlementSvc    = (*SettlementService)(nil)
	_ portssvc.IdempotencySvc   = (*IdempotencyService)(nil)
)
