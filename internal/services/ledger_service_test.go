package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sahanr/finance-tracker/internal/services"
	"github.com/sahanr/finance-tracker/internal/views"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/sahanr/finance-tracker/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ledgerFixture struct {
	store    *fakeStore
	ledger   services.LedgerService
	accounts services.AccountService
	userID   uuid.UUID
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := newFakeStore()
	accountRepo := &fakeAccountRepo{store: store}
	txnRepo := &fakeTransactionRepo{store: store}
	logger := zap.NewNop()
	userID := uuid.New()
	store.users[userID] = models.User{ID: userID, Username: "alice"}
	return &ledgerFixture{
		store:    store,
		ledger:   services.NewLedgerService(logger, store, accountRepo, txnRepo, noopCache{}),
		accounts: services.NewAccountService(logger, store, accountRepo, txnRepo, noopCache{}),
		userID:   userID,
	}
}

func (f *ledgerFixture) addAccount(t *testing.T, name, balance string) uuid.UUID {
	t.Helper()
	id, err := f.accounts.CreateAccount(context.Background(), "test-trace", f.userID, views.CreateAccountRequest{
		Name:    name,
		Balance: views.NewAmount(balance),
	})
	require.NoError(t, err)
	return id
}

func (f *ledgerFixture) create(t *testing.T, req views.CreateTransactionRequest) uuid.UUID {
	t.Helper()
	id, err := f.ledger.CreateTransaction(context.Background(), "test-trace", f.userID, req)
	require.NoError(t, err)
	return id
}

func (f *ledgerFixture) balance(t *testing.T, accountID uuid.UUID) string {
	t.Helper()
	account, ok := f.store.accounts[accountID]
	require.True(t, ok, "account %s not in store", accountID)
	return account.Balance.StringFixed(2)
}

func assertCode(t *testing.T, err error, code pkg.ErrorCode) {
	t.Helper()
	var appErr pkg.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code.Code, appErr.Code.Code)
	assert.Equal(t, code.Status, appErr.Code.Status)
}

func TestCreateTransaction_ValidationOrder(t *testing.T) {
	f := newLedgerFixture(t)
	accountID := f.addAccount(t, "Main Account", "")

	tests := []struct {
		name string
		req  views.CreateTransactionRequest
		code pkg.ErrorCode
	}{
		{
			name: "empty request",
			req:  views.CreateTransactionRequest{},
			code: pkg.ErrMissingFieldCode,
		},
		{
			name: "missing amount",
			req:  views.CreateTransactionRequest{AccountID: accountID.String(), Type: "income"},
			code: pkg.ErrMissingFieldCode,
		},
		{
			name: "missing account",
			req:  views.CreateTransactionRequest{Type: "income", Amount: views.NewAmount("10")},
			code: pkg.ErrMissingFieldCode,
		},
		{
			name: "unknown kind",
			req:  views.CreateTransactionRequest{AccountID: accountID.String(), Type: "withdrawal", Amount: views.NewAmount("10")},
			code: pkg.ErrInvalidKindCode,
		},
		{
			name: "transfer without destination",
			req:  views.CreateTransactionRequest{AccountID: accountID.String(), Type: "transfer", Amount: views.NewAmount("10")},
			code: pkg.ErrMissingDestinationCode,
		},
		{
			name: "destination checked before amount",
			req:  views.CreateTransactionRequest{AccountID: accountID.String(), Type: "transfer", Amount: views.NewAmount("junk")},
			code: pkg.ErrMissingDestinationCode,
		},
		{
			name: "unparseable amount",
			req:  views.CreateTransactionRequest{AccountID: accountID.String(), Type: "income", Amount: views.NewAmount("junk")},
			code: pkg.ErrInvalidAmountCode,
		},
		{
			name: "zero amount",
			req:  views.CreateTransactionRequest{AccountID: accountID.String(), Type: "income", Amount: views.NewAmount("0")},
			code: pkg.ErrInvalidAmountCode,
		},
		{
			name: "negative amount",
			req:  views.CreateTransactionRequest{AccountID: accountID.String(), Type: "expense", Amount: views.NewAmount("-5.00")},
			code: pkg.ErrInvalidAmountCode,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.CreateTransaction(context.Background(), "test-trace", f.userID, tc.req)
			assertCode(t, err, tc.code)
			assert.Empty(t, f.store.txns, "validation failures must not create ledger rows")
		})
	}
}

func TestCreateTransaction_OwnershipScoping(t *testing.T) {
	f := newLedgerFixture(t)
	f.addAccount(t, "Mine", "")

	otherUser := uuid.New()
	otherAccount := uuid.New()
	f.store.accounts[otherAccount] = models.Account{ID: otherAccount, UserID: otherUser, Name: "Theirs", Balance: decimal.New(500, 0)}

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.ledger.CreateTransaction(context.Background(), "test-trace", f.userID, views.CreateTransactionRequest{
			AccountID: uuid.New().String(), Type: "income", Amount: views.NewAmount("10"),
		})
		assertCode(t, err, pkg.ErrRecordNotFoundCode)
	})

	t.Run("account owned by someone else", func(t *testing.T) {
		_, err := f.ledger.CreateTransaction(context.Background(), "test-trace", f.userID, views.CreateTransactionRequest{
			AccountID: otherAccount.String(), Type: "income", Amount: views.NewAmount("10"),
		})
		assertCode(t, err, pkg.ErrRecordNotFoundCode)
		assert.Equal(t, "500.00", f.store.accounts[otherAccount].Balance.StringFixed(2))
	})

	t.Run("transfer destination owned by someone else", func(t *testing.T) {
		mine := f.addAccount(t, "Funded", "100")
		_, err := f.ledger.CreateTransaction(context.Background(), "test-trace", f.userID, views.CreateTransactionRequest{
			AccountID: mine.String(), Type: "transfer", Amount: views.NewAmount("10"), TransferToAccountID: otherAccount.String(),
		})
		assertCode(t, err, pkg.ErrRecordNotFoundCode)
		assert.Equal(t, "100.00", f.balance(t, mine), "failed transfer must not debit the source")
	})
}

func TestCreateTransaction_TransferToSelfRejected(t *testing.T) {
	f := newLedgerFixture(t)
	accountID := f.addAccount(t, "Main Account", "100")

	_, err := f.ledger.CreateTransaction(context.Background(), "test-trace", f.userID, views.CreateTransactionRequest{
		AccountID: accountID.String(), Type: "transfer", Amount: views.NewAmount("10"), TransferToAccountID: accountID.String(),
	})
	assertCode(t, err, pkg.ErrInvalidInputCode)
	assert.Equal(t, "100.00", f.balance(t, accountID))
}

// Scenario from the ledger's contract: income, transfer, reversal, and an
// overdraft attempt, with balances checked at every step.
func TestLedgerScenario(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	accountA := f.addAccount(t, "A", "")
	assert.Equal(t, "0.00", f.balance(t, accountA))

	f.create(t, views.CreateTransactionRequest{AccountID: accountA.String(), Type: "income", Amount: views.NewAmount("100")})
	assert.Equal(t, "100.00", f.balance(t, accountA))

	accountB := f.addAccount(t, "B", "")
	transferID := f.create(t, views.CreateTransactionRequest{
		AccountID: accountA.String(), Type: "transfer", Amount: views.NewAmount("40"), TransferToAccountID: accountB.String(),
	})
	assert.Equal(t, "60.00", f.balance(t, accountA))
	assert.Equal(t, "40.00", f.balance(t, accountB))

	require.NoError(t, f.ledger.DeleteTransaction(ctx, "test-trace", f.userID, transferID))
	assert.Equal(t, "100.00", f.balance(t, accountA))
	assert.Equal(t, "0.00", f.balance(t, accountB))

	_, err := f.ledger.CreateTransaction(ctx, "test-trace", f.userID, views.CreateTransactionRequest{
		AccountID: accountA.String(), Type: "expense", Amount: views.NewAmount("150"),
	})
	assertCode(t, err, pkg.ErrInsufficientFundsCode)
	assert.Equal(t, "100.00", f.balance(t, accountA))
}

func TestCreateExpense_InsufficientFunds_NoPartialState(t *testing.T) {
	f := newLedgerFixture(t)
	accountID := f.addAccount(t, "Main Account", "50")
	before := len(f.store.txns)

	_, err := f.ledger.CreateTransaction(context.Background(), "test-trace", f.userID, views.CreateTransactionRequest{
		AccountID: accountID.String(), Type: "expense", Amount: views.NewAmount("80"),
	})
	assertCode(t, err, pkg.ErrInsufficientFundsCode)
	assert.Equal(t, "50.00", f.balance(t, accountID))
	assert.Len(t, f.store.txns, before)
}

func TestCreateTransfer_InsufficientFunds_NoPartialState(t *testing.T) {
	f := newLedgerFixture(t)
	accountA := f.addAccount(t, "A", "30")
	accountB := f.addAccount(t, "B", "")
	before := len(f.store.txns)

	_, err := f.ledger.CreateTransaction(context.Background(), "test-trace", f.userID, views.CreateTransactionRequest{
		AccountID: accountA.String(), Type: "transfer", Amount: views.NewAmount("30.01"), TransferToAccountID: accountB.String(),
	})
	assertCode(t, err, pkg.ErrInsufficientFundsCode)
	assert.Equal(t, "30.00", f.balance(t, accountA))
	assert.Equal(t, "0.00", f.balance(t, accountB))
	assert.Len(t, f.store.txns, before)
}

func TestDeleteTransaction_RoundTripRestoresBalances(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountA := f.addAccount(t, "A", "200")
	accountB := f.addAccount(t, "B", "75.50")

	tests := []struct {
		name string
		req  views.CreateTransactionRequest
	}{
		{"income", views.CreateTransactionRequest{AccountID: accountA.String(), Type: "income", Amount: views.NewAmount("12.34")}},
		{"expense", views.CreateTransactionRequest{AccountID: accountA.String(), Type: "expense", Amount: views.NewAmount("99.99")}},
		{"transfer", views.CreateTransactionRequest{AccountID: accountA.String(), Type: "transfer", Amount: views.NewAmount("150"), TransferToAccountID: accountB.String()}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			balanceA := f.balance(t, accountA)
			balanceB := f.balance(t, accountB)

			txnID := f.create(t, tc.req)
			require.NoError(t, f.ledger.DeleteTransaction(ctx, "test-trace", f.userID, txnID))

			assert.Equal(t, balanceA, f.balance(t, accountA))
			assert.Equal(t, balanceB, f.balance(t, accountB))
			_, exists := f.store.txns[txnID]
			assert.False(t, exists)
		})
	}
}

func TestDeleteIncome_WouldGoNegative(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountID := f.addAccount(t, "Main Account", "")

	incomeID := f.create(t, views.CreateTransactionRequest{AccountID: accountID.String(), Type: "income", Amount: views.NewAmount("100")})
	f.create(t, views.CreateTransactionRequest{AccountID: accountID.String(), Type: "expense", Amount: views.NewAmount("60")})
	require.Equal(t, "40.00", f.balance(t, accountID))

	err := f.ledger.DeleteTransaction(ctx, "test-trace", f.userID, incomeID)
	assertCode(t, err, pkg.ErrWouldGoNegativeCode)

	// Nothing changed: the income row survives and the balance is untouched.
	assert.Equal(t, "40.00", f.balance(t, accountID))
	_, exists := f.store.txns[incomeID]
	assert.True(t, exists)
}

func TestDeleteTransfer_DestinationWouldGoNegative(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountA := f.addAccount(t, "A", "100")
	accountB := f.addAccount(t, "B", "")

	transferID := f.create(t, views.CreateTransactionRequest{
		AccountID: accountA.String(), Type: "transfer", Amount: views.NewAmount("60"), TransferToAccountID: accountB.String(),
	})
	f.create(t, views.CreateTransactionRequest{AccountID: accountB.String(), Type: "expense", Amount: views.NewAmount("30")})
	require.Equal(t, "40.00", f.balance(t, accountA))
	require.Equal(t, "30.00", f.balance(t, accountB))

	err := f.ledger.DeleteTransaction(ctx, "test-trace", f.userID, transferID)
	assertCode(t, err, pkg.ErrWouldGoNegativeCode)

	// The failed reversal must not leave the source credit behind.
	assert.Equal(t, "40.00", f.balance(t, accountA))
	assert.Equal(t, "30.00", f.balance(t, accountB))
	_, exists := f.store.txns[transferID]
	assert.True(t, exists)
}

func TestDeleteExpense_NoUpperBoundCheck(t *testing.T) {
	f := newLedgerFixture(t)
	accountID := f.addAccount(t, "Main Account", "100")

	expenseID := f.create(t, views.CreateTransactionRequest{AccountID: accountID.String(), Type: "expense", Amount: views.NewAmount("100")})
	require.Equal(t, "0.00", f.balance(t, accountID))

	// Reversing an expense credits unconditionally.
	require.NoError(t, f.ledger.DeleteTransaction(context.Background(), "test-trace", f.userID, expenseID))
	assert.Equal(t, "100.00", f.balance(t, accountID))
}

func TestDeleteTransaction_Ownership(t *testing.T) {
	f := newLedgerFixture(t)
	accountID := f.addAccount(t, "Main Account", "")
	txnID := f.create(t, views.CreateTransactionRequest{AccountID: accountID.String(), Type: "income", Amount: views.NewAmount("10")})

	err := f.ledger.DeleteTransaction(context.Background(), "test-trace", uuid.New(), txnID)
	assertCode(t, err, pkg.ErrRecordNotFoundCode)
	_, exists := f.store.txns[txnID]
	assert.True(t, exists)
	assert.Equal(t, "10.00", f.balance(t, accountID))
}

func TestDeleteTransfer_AfterDestinationDeleted(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountA := f.addAccount(t, "A", "100")
	accountB := f.addAccount(t, "B", "")

	transferID := f.create(t, views.CreateTransactionRequest{
		AccountID: accountA.String(), Type: "transfer", Amount: views.NewAmount("40"), TransferToAccountID: accountB.String(),
	})
	require.NoError(t, f.accounts.DeleteAccount(ctx, "test-trace", f.userID, accountB))

	txn := f.store.txns[transferID]
	require.Nil(t, txn.TransferToAccountID, "deleting the destination must null the transfer reference")

	// Only the source leg remains to reverse.
	require.NoError(t, f.ledger.DeleteTransaction(ctx, "test-trace", f.userID, transferID))
	assert.Equal(t, "100.00", f.balance(t, accountA))
}

func TestRepeatedPostings_NoDrift(t *testing.T) {
	f := newLedgerFixture(t)
	accountID := f.addAccount(t, "Main Account", "")

	for i := 0; i < 10; i++ {
		f.create(t, views.CreateTransactionRequest{AccountID: accountID.String(), Type: "income", Amount: views.NewAmount("0.10")})
	}
	assert.Equal(t, "1.00", f.balance(t, accountID), "ten postings of 0.10 sum exactly")

	for i := 0; i < 3; i++ {
		f.create(t, views.CreateTransactionRequest{AccountID: accountID.String(), Type: "expense", Amount: views.NewAmount("0.30")})
	}
	assert.Equal(t, "0.10", f.balance(t, accountID))
}

// The ledger identity invariant: an account's balance always equals the sum
// of the signed effects of the transactions that currently reference it.
func TestLedgerIdentityInvariant(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	accountA := f.addAccount(t, "A", "250")
	accountB := f.addAccount(t, "B", "10.25")

	ids := []uuid.UUID{
		f.create(t, views.CreateTransactionRequest{AccountID: accountA.String(), Type: "income", Amount: views.NewAmount("19.99")}),
		f.create(t, views.CreateTransactionRequest{AccountID: accountA.String(), Type: "expense", Amount: views.NewAmount("45.10")}),
		f.create(t, views.CreateTransactionRequest{AccountID: accountA.String(), Type: "transfer", Amount: views.NewAmount("33.33"), TransferToAccountID: accountB.String()}),
		f.create(t, views.CreateTransactionRequest{AccountID: accountB.String(), Type: "expense", Amount: views.NewAmount("5.55")}),
	}
	require.NoError(t, f.ledger.DeleteTransaction(ctx, "test-trace", f.userID, ids[1]))

	for _, accountID := range []uuid.UUID{accountA, accountB} {
		expected := decimal.Zero
		for _, txn := range f.store.txns {
			if txn.AccountID == accountID {
				switch txn.Kind {
				case pkg.TxKindIncome:
					expected = expected.Add(txn.Amount)
				case pkg.TxKindExpense, pkg.TxKindTransfer:
					expected = expected.Sub(txn.Amount)
				}
			}
			if txn.TransferToAccountID != nil && *txn.TransferToAccountID == accountID {
				expected = expected.Add(txn.Amount)
			}
		}
		assert.Equal(t, expected.StringFixed(2), f.balance(t, accountID), "account %s", accountID)
	}
}
