package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/SscSPs/banking_ledger/internal/core/services"
	"github.com/SscSPs/banking_ledger/internal/dto"
	"github.com/SscSPs/banking_ledger/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AccountServiceTestSuite struct {
	suite.Suite
	f   *ledgerFixture
	ctx context.Context
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.f = newFixture(suite.T())
	suite.ctx = context.Background()
}

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	acc, err := suite.f.accounts.CreateAccount(suite.ctx, "alice", dto.CreateAccountRequest{CurrencyCode: "usd"})
	suite.Require().NoError(err)
	suite.NotEmpty(acc.AccountID)
	suite.Len(acc.AccountNumber, 10)
	suite.Equal("USD", acc.CurrencyCode)
	suite.Equal(domain.AccountActive, acc.Status)
	suite.True(acc.Balance.IsZero())
	suite.True(acc.AvailableBalance.IsZero())
	suite.Equal("alice", acc.CreatedBy)

	got, err := suite.f.accounts.GetAccount(suite.ctx, "alice", acc.AccountID)
	suite.Require().NoError(err)
	suite.Equal(acc.AccountNumber, got.AccountNumber)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_InvalidCurrency() {
	_, err := suite.f.accounts.CreateAccount(suite.ctx, "alice", dto.CreateAccountRequest{CurrencyCode: "DOLLARS"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *AccountServiceTestSuite) TestGetAccount_HidesOtherOwners() {
	acc := suite.f.openAccount(suite.T(), "alice", "10")
	_, err := suite.f.accounts.GetAccount(suite.ctx, "mallory", acc.AccountID)
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)

	_, err = suite.f.accounts.GetAccount(suite.ctx, "alice", "missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *AccountServiceTestSuite) TestListAccounts() {
	suite.f.openAccount(suite.T(), "alice", "10")
	suite.f.openAccount(suite.T(), "alice", "20")
	suite.f.openAccount(suite.T(), "bob", "30")

	accounts, err := suite.f.accounts.ListAccounts(suite.ctx, "alice")
	suite.Require().NoError(err)
	suite.Len(accounts, 2)

	accounts, err = suite.f.accounts.ListAccounts(suite.ctx, "nobody")
	suite.Require().NoError(err)
	suite.NotNil(accounts)
	suite.Empty(accounts)
}

func (suite *AccountServiceTestSuite) TestDeposit_IdempotentByKey() {
	acc := suite.f.openAccount(suite.T(), "alice", "0")
	req := dto.DepositRequest{Amount: dec("250.75"), Currency: "USD", Description: "payroll"}

	first, err := suite.f.accounts.Deposit(suite.ctx, "admin", "D1", acc.AccountID, req)
	suite.Require().NoError(err)
	suite.False(first.Replayed)
	suite.Equal(domain.TransactionDeposit, first.Transaction.Type)
	suite.Equal(domain.StatusCompleted, first.Transaction.Status)
	suite.Regexp(`^DEP-`, first.Transaction.Reference)

	second, err := suite.f.accounts.Deposit(suite.ctx, "admin", "D1", acc.AccountID, req)
	suite.Require().NoError(err)
	suite.True(second.Replayed)
	suite.Equal(first.Transaction.Reference, second.Transaction.Reference)

	assertMoney(suite.T(), "250.75", suite.f.account(suite.T(), acc.AccountID).Balance)
}

func (suite *AccountServiceTestSuite) TestDeposit_Rejections() {
	acc := suite.f.openAccount(suite.T(), "alice", "0")

	_, err := suite.f.accounts.Deposit(suite.ctx, "admin", "", acc.AccountID, dto.DepositRequest{Amount: dec("10"), Currency: "EUR"})
	suite.ErrorIs(err, apperrors.ErrCurrencyMismatch)

	_, err = suite.f.accounts.Deposit(suite.ctx, "admin", "", acc.AccountID, dto.DepositRequest{Amount: dec("-10"), Currency: "USD"})
	suite.ErrorIs(err, apperrors.ErrInvalidAmount)

	_, err = suite.f.accounts.UpdateStatus(suite.ctx, "admin", acc.AccountID, domain.AccountSuspended)
	suite.Require().NoError(err)
	_, err = suite.f.accounts.Deposit(suite.ctx, "admin", "", acc.AccountID, dto.DepositRequest{Amount: dec("10"), Currency: "USD"})
	suite.ErrorIs(err, apperrors.ErrAccountInactive)
}

func (suite *AccountServiceTestSuite) TestUpdateStatus() {
	acc := suite.f.openAccount(suite.T(), "alice", "5")

	_, err := suite.f.accounts.UpdateStatus(suite.ctx, "admin", acc.AccountID, domain.AccountClosed)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition, "closing needs a zero balance")

	updated, err := suite.f.accounts.UpdateStatus(suite.ctx, "admin", acc.AccountID, domain.AccountInactive)
	suite.Require().NoError(err)
	suite.Equal(domain.AccountInactive, updated.Status)
	suite.Equal("admin", updated.LastUpdatedBy)

	_, err = suite.f.accounts.UpdateStatus(suite.ctx, "admin", acc.AccountID, domain.AccountStatus("FROZEN"))
	suite.ErrorIs(err, apperrors.ErrValidation)

	empty := suite.f.openAccount(suite.T(), "alice", "0")
	closed, err := suite.f.accounts.UpdateStatus(suite.ctx, "admin", empty.AccountID, domain.AccountClosed)
	suite.Require().NoError(err)
	suite.Equal(domain.AccountClosed, closed.Status)
	_, err = suite.f.accounts.UpdateStatus(suite.ctx, "admin", empty.AccountID, domain.AccountActive)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *AccountServiceTestSuite) TestClose_NeverStrandsCredits() {
	for i := 0; i < 20; i++ {
		acc := suite.f.openAccount(suite.T(), "alice", "0")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = suite.f.accounts.UpdateStatus(suite.ctx, "admin", acc.AccountID, domain.AccountClosed)
		}()
		go func() {
			defer wg.Done()
			_, _ = suite.f.accounts.Deposit(suite.ctx, "admin", "", acc.AccountID, dto.DepositRequest{Amount: dec("10"), Currency: "USD"})
		}()
		wg.Wait()

		got := suite.f.account(suite.T(), acc.AccountID)
		if got.Status == domain.AccountClosed {
			suite.True(got.Balance.IsZero(), "closed account %s holds %s", acc.AccountID, got.Balance)
		} else {
			assertMoney(suite.T(), "10", got.Balance)
		}
	}
}

func (suite *AccountServiceTestSuite) TestListTransactions_Pages() {
	a := suite.f.openAccount(suite.T(), "alice", "100")
	b := suite.f.openAccount(suite.T(), "bob", "0")
	for _, key := range []string{"k1", "k2", "k3"} {
		_, err := suite.f.transfers.CreateTransfer(suite.ctx, "alice", key, dto.CreateTransferRequest{
			FromAccountID: a.AccountID, ToAccountID: b.AccountID, Amount: dec("1"), Currency: "USD",
		})
		suite.Require().NoError(err)
	}

	page, next, err := suite.f.accounts.ListTransactions(suite.ctx, "alice", a.AccountID, 2, nil)
	suite.Require().NoError(err)
	suite.Len(page, 2)
	suite.Require().NotNil(next)

	rest, next, err := suite.f.accounts.ListTransactions(suite.ctx, "alice", a.AccountID, 2, next)
	suite.Require().NoError(err)
	suite.Len(rest, 1)
	suite.Nil(next)

	_, _, err = suite.f.accounts.ListTransactions(suite.ctx, "bob", a.AccountID, 2, nil)
	suite.ErrorIs(err, apperrors.ErrAccountNotFound)

	bad := "%%%"
	_, _, err = suite.f.accounts.ListTransactions(suite.ctx, "alice", a.AccountID, 2, &bad)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func TestCreateAccount_RetriesNumberCollisions(t *testing.T) {
	store := memory.NewStore()
	numbers := []string{"1111111111", "1111111111", "2222222222"}
	calls := 0
	svc := services.NewAccountService(store, services.WithAccountNumberFactory(func() (string, error) {
		n := numbers[calls]
		calls++
		return n, nil
	}))

	first, err := svc.CreateAccount(context.Background(), "alice", dto.CreateAccountRequest{CurrencyCode: "USD"})
	require.NoError(t, err)
	second, err := svc.CreateAccount(context.Background(), "alice", dto.CreateAccountRequest{CurrencyCode: "USD"})
	require.NoError(t, err)

	assert.Equal(t, "1111111111", first.AccountNumber)
	assert.Equal(t, "2222222222", second.AccountNumber)
	assert.Equal(t, 3, calls)
}

func TestCreateAccount_NumberFactoryError(t *testing.T) {
	svc := services.NewAccountService(memory.NewStore(), services.WithAccountNumberFactory(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))
	_, err := svc.CreateAccount(context.Background(), "alice", dto.CreateAccountRequest{CurrencyCode: "USD"})
	assert.Error(t, err)
}
