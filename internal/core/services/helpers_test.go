package services_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/core/services"
	"github.com/SscSPs/banking_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testBankCode = "LEDGER"

// MockGateway is a mock type for the SettlementGateway interface
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) VerifyDestination(ctx context.Context, accountNumber, bankCode string) (*domain.DestinationInfo, error) {
	args := m.Called(ctx, accountNumber, bankCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DestinationInfo), args.Error(1)
}

func (m *MockGateway) Initiate(ctx context.Context, req domain.SettlementRequest) (*domain.SettlementResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

func (m *MockGateway) PollStatus(ctx context.Context, reference string) (*domain.SettlementResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

// MockPublisher is a mock type for the EventPublisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTransactionEvent(ctx context.Context, event domain.TransactionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

var (
	_ portssvc.SettlementGateway = (*MockGateway)(nil)
	_ portssvc.EventPublisher    = (*MockPublisher)(nil)
)

// ledgerFixture wires every service against one in-memory store.
type ledgerFixture struct {
	store      *memory.Store
	idem       *services.IdempotencyService
	gateway    *MockGateway
	publisher  *MockPublisher
	notifier   *services.Notifier
	adapter    *services.SettlementAdapter
	settlement *services.SettlementService
	transfers  *services.TransferService
	loans      *services.LoanService
	accounts   portssvc.AccountSvcFacade

	numbers atomic.Int64
}

func newFixture(t *testing.T) *ledgerFixture {
	return newFixtureWithTimeout(t, time.Second)
}

func newFixtureWithTimeout(t *testing.T, gatewayTimeout time.Duration) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		store:     memory.NewStore(memory.WithLockTimeout(2 * time.Second)),
		gateway:   new(MockGateway),
		publisher: new(MockPublisher),
	}
	f.publisher.On("PublishTransactionEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.idem = services.NewIdempotencyService(memory.NewIdempotencyRepository())
	f.notifier = services.NewNotifier(f.publisher, time.Second)
	f.adapter = services.NewSettlementAdapter(f.gateway, gatewayTimeout)
	f.settlement = services.NewSettlementService(f.store, f.adapter,
		services.WithSettlementNotifier(f.notifier),
		services.WithSweepPolicy(0, 50, 4),
		services.WithSettlementClock(func() time.Time { return time.Now().Add(time.Minute) }),
	)
	f.transfers = services.NewTransferService(f.store, f.idem, testBankCode,
		services.WithExternalSettlement(f.adapter, f.settlement),
		services.WithTransferNotifier(f.notifier),
		services.WithTransferMaxRetries(5),
	)
	f.loans = services.NewLoanService(f.store, f.idem, services.WithLoanNotifier(f.notifier))
	f.accounts = services.NewAccountService(f.store,
		services.WithAccountIdempotency(f.idem),
		services.WithAccountNotifier(f.notifier),
	)
	t.Cleanup(f.notifier.Wait)
	return f
}

// openAccount saves an active USD account for owner holding balance.
func (f *ledgerFixture) openAccount(t *testing.T, owner, balance string) domain.Account {
	t.Helper()
	return f.openAccountIn(t, owner, balance, "USD")
}

func (f *ledgerFixture) openAccountIn(t *testing.T, owner, balance, currency string) domain.Account {
	t.Helper()
	bal := decimal.RequireFromString(balance)
	n := f.numbers.Add(1)
	acc := domain.Account{
		AccountID:        fmt.Sprintf("acc-%03d", n),
		OwnerID:          owner,
		AccountNumber:    fmt.Sprintf("%010d", 1000000000+n),
		Balance:          bal,
		AvailableBalance: bal,
		CurrencyCode:     currency,
		Status:           domain.AccountActive,
		AuditFields:      domain.NewAuditFields("test", time.Now()),
	}
	require.NoError(t, f.store.SaveAccount(context.Background(), acc))
	return acc
}

func (f *ledgerFixture) account(t *testing.T, id string) domain.Account {
	t.Helper()
	acc, err := f.store.FindAccountByID(context.Background(), id)
	require.NoError(t, err)
	return *acc
}

func (f *ledgerFixture) total(t *testing.T, ids ...string) decimal.Decimal {
	t.Helper()
	sum := decimal.Zero
	for _, id := range ids {
		sum = sum.Add(f.account(t, id).Balance)
	}
	return sum
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.StringFixed(2))
}
