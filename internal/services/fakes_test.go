package services_test

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/sahanr/finance-tracker/pkg/database"
	"github.com/sahanr/finance-tracker/pkg/models"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the ledger store. WithTransaction
// snapshots the maps up front and restores them when fn fails, mirroring the
// all-or-nothing semantics of the real unit of work.
type fakeStore struct {
	users    map[uuid.UUID]models.User
	accounts map[uuid.UUID]models.Account
	txns     map[uuid.UUID]models.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]models.User),
		accounts: make(map[uuid.UUID]models.Account),
		txns:     make(map[uuid.UUID]models.Transaction),
	}
}

var _ database.Conn = (*fakeStore)(nil)

func (f *fakeStore) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("fakeStore.Query: repositories are faked; no SQL should reach the store")
}

func (f *fakeStore) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("fakeStore.QueryRow: repositories are faked; no SQL should reach the store")
}

func (f *fakeStore) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("fakeStore.Exec: repositories are faked; no SQL should reach the store")
}

func (f *fakeStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	users := copyMap(f.users)
	accounts := copyMap(f.accounts)
	txns := copyMap(f.txns)
	if err := fn(ctx, nil); err != nil {
		f.users = users
		f.accounts = accounts
		f.txns = txns
		return err
	}
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// fakeAccountRepo applies the same FK actions the migration DDL declares:
// deleting an account removes its transactions and nulls transfer references
// pointing at it.
type fakeAccountRepo struct {
	store *fakeStore
}

func (r *fakeAccountRepo) Create(_ context.Context, _ pgx.Tx, account models.Account) (pgconn.CommandTag, error) {
	r.store.accounts[account.ID] = account
	return pgconn.CommandTag{}, nil
}

func (r *fakeAccountRepo) FindByIdForUpdate(_ context.Context, _ pgx.Tx, accountID, userID uuid.UUID) (models.Account, error) {
	account, ok := r.store.accounts[accountID]
	if !ok || account.UserID != userID {
		return models.Account{}, pgx.ErrNoRows
	}
	return account, nil
}

func (r *fakeAccountRepo) UpdateBalance(_ context.Context, _ pgx.Tx, accountID uuid.UUID, balance decimal.Decimal) error {
	account, ok := r.store.accounts[accountID]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Balance = balance
	r.store.accounts[accountID] = account
	return nil
}

func (r *fakeAccountRepo) Rename(_ context.Context, _ database.Conn, accountID, userID uuid.UUID, name string) (int64, error) {
	account, ok := r.store.accounts[accountID]
	if !ok || account.UserID != userID {
		return 0, nil
	}
	account.Name = name
	r.store.accounts[accountID] = account
	return 1, nil
}

func (r *fakeAccountRepo) Delete(_ context.Context, _ database.Conn, accountID, userID uuid.UUID) (int64, error) {
	account, ok := r.store.accounts[accountID]
	if !ok || account.UserID != userID {
		return 0, nil
	}
	delete(r.store.accounts, accountID)
	for id, txn := range r.store.txns {
		if txn.AccountID == accountID {
			delete(r.store.txns, id)
			continue
		}
		if txn.TransferToAccountID != nil && *txn.TransferToAccountID == accountID {
			txn.TransferToAccountID = nil
			r.store.txns[id] = txn
		}
	}
	return 1, nil
}

func (r *fakeAccountRepo) ListByUser(_ context.Context, _ database.Conn, userID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	for _, account := range r.store.accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (r *fakeAccountRepo) SumBalances(_ context.Context, _ database.Conn, userID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, account := range r.store.accounts {
		if account.UserID == userID {
			total = total.Add(account.Balance)
		}
	}
	return total, nil
}

func (r *fakeAccountRepo) FirstByUser(ctx context.Context, db database.Conn, userID uuid.UUID) (models.Account, error) {
	accounts, _ := r.ListByUser(ctx, db, userID)
	if len(accounts) == 0 {
		return models.Account{}, pgx.ErrNoRows
	}
	return accounts[0], nil
}

type fakeTransactionRepo struct {
	store *fakeStore
}

func (r *fakeTransactionRepo) Create(_ context.Context, _ pgx.Tx, txn models.Transaction) (pgconn.CommandTag, error) {
	r.store.txns[txn.ID] = txn
	return pgconn.CommandTag{}, nil
}

func (r *fakeTransactionRepo) FindByIdForUser(_ context.Context, _ pgx.Tx, txnID, userID uuid.UUID) (models.Transaction, error) {
	txn, ok := r.store.txns[txnID]
	if !ok || txn.UserID != userID {
		return models.Transaction{}, pgx.ErrNoRows
	}
	return txn, nil
}

func (r *fakeTransactionRepo) Delete(_ context.Context, _ pgx.Tx, txnID uuid.UUID) error {
	delete(r.store.txns, txnID)
	return nil
}

func (r *fakeTransactionRepo) ListByUser(_ context.Context, _ database.Conn, userID uuid.UUID, accountID *uuid.UUID, limit int) ([]models.TransactionRecord, error) {
	var records []models.TransactionRecord
	for _, txn := range r.store.txns {
		if txn.UserID != userID {
			continue
		}
		if accountID != nil && txn.AccountID != *accountID {
			continue
		}
		rec := models.TransactionRecord{Transaction: txn}
		if source, ok := r.store.accounts[txn.AccountID]; ok {
			rec.AccountName = source.Name
		}
		if txn.TransferToAccountID != nil {
			if dest, ok := r.store.accounts[*txn.TransferToAccountID]; ok {
				name := dest.Name
				rec.TransferToAccountName = &name
			}
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (r *fakeTransactionRepo) MonthlyTotals(_ context.Context, _ database.Conn, userID uuid.UUID) ([]models.MonthlyTotal, error) {
	cutoff := time.Now().AddDate(0, -12, 0)
	type bucket struct {
		year, month int
		kind        string
	}
	sums := make(map[bucket]decimal.Decimal)
	for _, txn := range r.store.txns {
		if txn.UserID != userID || txn.CreatedAt.Before(cutoff) {
			continue
		}
		if txn.Kind != pkg.TxKindIncome && txn.Kind != pkg.TxKindExpense {
			continue
		}
		b := bucket{year: txn.CreatedAt.Year(), month: int(txn.CreatedAt.Month()), kind: string(txn.Kind)}
		sums[b] = sums[b].Add(txn.Amount)
	}
	var totals []models.MonthlyTotal
	for b, total := range sums {
		totals = append(totals, models.MonthlyTotal{Year: b.year, Month: b.month, Kind: pkg.TxKind(b.kind), Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Year != totals[j].Year {
			return totals[i].Year > totals[j].Year
		}
		return totals[i].Month > totals[j].Month
	})
	return totals, nil
}

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(_ context.Context, _ pgx.Tx, user models.User) (pgconn.CommandTag, error) {
	for _, existing := range r.store.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
	}
	r.store.users[user.ID] = user
	return pgconn.CommandTag{}, nil
}

func (r *fakeUserRepo) FindByIdentity(_ context.Context, _ database.Conn, usernameOrEmail string) (models.User, error) {
	for _, user := range r.store.users {
		if user.Username == usernameOrEmail || user.Email == usernameOrEmail {
			return user, nil
		}
	}
	return models.User{}, pgx.ErrNoRows
}

// noopCache satisfies CacheInvalidator for tests that do not exercise caching.
type noopCache struct{}

func (noopCache) InvalidateUser(context.Context, uuid.UUID) {}
