package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"corebank/internal/model"
	"corebank/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAccount(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	ctx := context.Background()

	tests := []struct {
		name    string
		req     OpenAccountRequest
		wantErr error
	}{
		{"zero opening balance", OpenAccountRequest{Number: "100001", Type: model.AccountTypeSavings, OpeningBalance: dec("0"), CustomerID: 1}, nil},
		{"negative opening balance", OpenAccountRequest{Number: "100002", Type: model.AccountTypeSavings, OpeningBalance: dec("-0.01"), CustomerID: 1}, errs.ErrInvalidOpeningBalance},
		{"unknown type", OpenAccountRequest{Number: "100003", Type: "GOLD", OpeningBalance: dec("10"), CustomerID: 1}, errs.ErrInvalidAccountType},
		{"unknown customer", OpenAccountRequest{Number: "100004", Type: model.AccountTypeChecking, OpeningBalance: dec("10"), CustomerID: 99}, errs.ErrCustomerNotFound},
		{"duplicate number", OpenAccountRequest{Number: "100001", Type: model.AccountTypeChecking, OpeningBalance: dec("10"), CustomerID: 1}, errs.ErrDuplicateAccountNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := env.ledger.OpenAccount(ctx, &tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, account)
				return
			}
			require.NoError(t, err)
			assert.True(t, account.Active)
			assert.NotZero(t, account.ID)
		})
	}

	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(errs.ErrInvalidOpeningBalance))
	assert.Equal(t, errs.KindConflict, errs.KindOf(errs.ErrDuplicateAccountNumber))
}

func TestOpenAccount_NumberUniqueAmongInactive(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	account := env.openAccount(t, "478758", "100", 1)
	require.NoError(t, env.ledger.DeactivateAccount(context.Background(), account.ID))

	_, err := env.ledger.OpenAccount(context.Background(), &OpenAccountRequest{
		Number: "478758", Type: model.AccountTypeSavings, OpeningBalance: dec("1"), CustomerID: 1,
	})
	assert.ErrorIs(t, err, errs.ErrDuplicateAccountNumber)
}

func TestScenarioA_WithdrawalWithinBalance(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	account := env.openAccount(t, "478758", "2000.00", 1)

	result, err := env.movements.PostMovement(context.Background(), "478758", dec("-575.00"))
	require.NoError(t, err)
	assert.Equal(t, "478758", result.AccountNumber)
	assert.Equal(t, model.MovementKindWithdrawal, result.Kind)
	assert.True(t, result.ResultingBalance.Equal(dec("1425.00")), result.ResultingBalance.String())

	balance, err := env.ledger.ComputeBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("1425.00")), balance.String())

	listed, err := env.movements.ListMovements(context.Background(), "478758")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].ResultingBalance.Equal(dec("1425.00")))
}

func TestScenarioB_Overdraft(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	account := env.openAccount(t, "478758", "2000.00", 1)

	_, err := env.movements.PostMovement(context.Background(), "478758", dec("-2500.00"))
	assert.ErrorIs(t, err, errs.ErrInsufficientFunds)
	assert.Equal(t, errs.KindInsufficientFunds, errs.KindOf(err))

	var count int64
	require.NoError(t, env.db.Model(&model.Movement{}).Count(&count).Error)
	assert.Zero(t, count)

	balance, err := env.ledger.ComputeBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("2000.00")))
}

func TestScenarioC_UnknownAccount(t *testing.T) {
	env := newLedgerEnv(t)

	_, err := env.movements.PostMovement(context.Background(), "999999", dec("10"))
	assert.ErrorIs(t, err, errs.ErrAccountNotFound)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	var count int64
	require.NoError(t, env.db.Model(&model.Movement{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestScenarioD_DeactivateTwice(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	account := env.openAccount(t, "478758", "50", 1)
	ctx := context.Background()

	require.NoError(t, env.ledger.DeactivateAccount(ctx, account.ID))
	require.NoError(t, env.ledger.DeactivateAccount(ctx, account.ID))

	got, err := env.ledger.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = env.movements.PostMovement(ctx, "478758", dec("10"))
	assert.ErrorIs(t, err, errs.ErrAccountInactive)

	_, err = env.ledger.AppendMovement(ctx, account.ID, dec("10"), env.movements.now())
	assert.ErrorIs(t, err, errs.ErrAccountInactive)

	assert.ErrorIs(t, env.ledger.DeactivateAccount(ctx, 12345), errs.ErrAccountNotFound)
}

func TestZeroAmountIsLabelledWithdrawal(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	env.openAccount(t, "478758", "0", 1)

	result, err := env.movements.PostMovement(context.Background(), "478758", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, model.MovementKindWithdrawal, result.Kind)
	assert.True(t, result.ResultingBalance.IsZero())

	deposit, err := env.movements.PostMovement(context.Background(), "478758", dec("0.01"))
	require.NoError(t, err)
	assert.Equal(t, model.MovementKindDeposit, deposit.Kind)
}

func TestResultingBalancesFollowInsertionOrder(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	a := env.openAccount(t, "A-1", "100", 1)
	b := env.openAccount(t, "B-1", "10", 1)
	ctx := context.Background()

	amounts := []string{"25.50", "-40", "10", "-95.50", "3"}
	running := dec("100")
	for _, amt := range amounts {
		// interleave writes on another account
		_, err := env.movements.PostMovement(ctx, "B-1", dec("1"))
		require.NoError(t, err)

		result, err := env.movements.PostMovement(ctx, "A-1", dec(amt))
		require.NoError(t, err)
		running = running.Add(dec(amt))
		assert.True(t, result.ResultingBalance.Equal(running), "after %s: got %s want %s", amt, result.ResultingBalance, running)
	}

	balance, err := env.ledger.ComputeBalance(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("3")), balance.String())

	balanceB, err := env.ledger.ComputeBalance(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, balanceB.Equal(dec("15")), balanceB.String())

	listed, err := env.movements.ListMovements(ctx, "A-1")
	require.NoError(t, err)
	require.Len(t, listed, len(amounts))
	assert.True(t, listed[0].Amount.Equal(dec("3")), "newest first")
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	account := env.openAccount(t, "478758", "1000", 1)
	env.openAccount(t, "other", "0", 1)

	const workers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := env.movements.PostMovement(context.Background(), "478758", dec("-100"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errs.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := env.movements.PostMovement(context.Background(), "other", dec("1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, rejected)

	balance, err := env.ledger.ComputeBalance(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), balance.String())

	var movements []model.Movement
	require.NoError(t, env.db.Where("account_id = ?", account.ID).Order("id ASC").Find(&movements).Error)
	for _, m := range movements {
		assert.False(t, m.ResultingBalance.IsNegative())
	}
}

func TestUpdateAccount(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	account := env.openAccount(t, "478758", "100", 1)
	ctx := context.Background()

	checking := model.AccountTypeChecking
	opening := dec("250")
	updated, err := env.ledger.UpdateAccount(ctx, account.ID, &UpdateAccountRequest{Type: &checking, OpeningBalance: &opening})
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeChecking, updated.Type)
	assert.True(t, updated.OpeningBalance.Equal(opening))

	negative := dec("-1")
	_, err = env.ledger.UpdateAccount(ctx, account.ID, &UpdateAccountRequest{OpeningBalance: &negative})
	assert.ErrorIs(t, err, errs.ErrInvalidOpeningBalance)

	bogus := "GOLD"
	_, err = env.ledger.UpdateAccount(ctx, account.ID, &UpdateAccountRequest{Type: &bogus})
	assert.ErrorIs(t, err, errs.ErrInvalidAccountType)

	_, err = env.movements.PostMovement(ctx, "478758", dec("10"))
	require.NoError(t, err)

	changed := dec("300")
	_, err = env.ledger.UpdateAccount(ctx, account.ID, &UpdateAccountRequest{OpeningBalance: &changed})
	assert.ErrorIs(t, err, errs.ErrOpeningBalanceLocked)

	// same value is not a change
	_, err = env.ledger.UpdateAccount(ctx, account.ID, &UpdateAccountRequest{OpeningBalance: &opening})
	assert.NoError(t, err)

	_, err = env.ledger.UpdateAccount(ctx, 4242, &UpdateAccountRequest{Type: &checking})
	assert.ErrorIs(t, err, errs.ErrAccountNotFound)
}

func TestListAccountsForCustomer(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	env.seedCustomer(t, 2, "Marianela")
	a := env.openAccount(t, "A", "1", 1)
	env.openAccount(t, "B", "1", 1)
	env.openAccount(t, "C", "1", 2)
	ctx := context.Background()

	require.NoError(t, env.ledger.DeactivateAccount(ctx, a.ID))

	active, err := env.ledger.ListAccountsForCustomer(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Number)

	all, err := env.ledger.ListAccountsForCustomer(ctx, 1, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	everything, err := env.ledger.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, everything, 3)

	byNumber, err := env.ledger.GetAccountByNumber(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, int64(2), byNumber.CustomerID)
}

func TestLedgerStorageFailureIsUnavailable(t *testing.T) {
	env := newLedgerEnv(t)
	env.seedCustomer(t, 1, "Jose")
	account := env.openAccount(t, "478758", "10", 1)

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = env.ledger.ComputeBalance(context.Background(), account.ID)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))
}
