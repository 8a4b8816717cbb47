package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sahanr/finance-tracker/pkg/database"
	"github.com/sahanr/finance-tracker/pkg/models"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account repository.
type AccountRepository interface {
	// Create creates a new account.
	Create(ctx context.Context, tx pgx.Tx, account models.Account) (pgconn.CommandTag, error)
	// FindByIdForUpdate reads an account owned by userID and takes a row lock,
	// serializing concurrent balance read-then-writes on the same account.
	FindByIdForUpdate(ctx context.Context, tx pgx.Tx, accountID, userID uuid.UUID) (models.Account, error)
	// UpdateBalance persists a new balance within the caller's transaction.
	UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance decimal.Decimal) error
	// Rename updates the display name; returns the number of rows affected.
	Rename(ctx context.Context, db database.Conn, accountID, userID uuid.UUID, name string) (int64, error)
	// Delete removes the account; transactions cascade and transfer references
	// to it are nulled by the schema's FK actions. Returns rows affected.
	Delete(ctx context.Context, db database.Conn, accountID, userID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, db database.Conn, userID uuid.UUID) ([]models.Account, error)
	SumBalances(ctx context.Context, db database.Conn, userID uuid.UUID) (decimal.Decimal, error)
	// FirstByUser returns the user's oldest account (the registration default).
	FirstByUser(ctx context.Context, db database.Conn, userID uuid.UUID) (models.Account, error)
}

type AccountRepositoryImpl struct {
}

func NewAccountRepository() AccountRepository {
	return &AccountRepositoryImpl{}
}

func (a AccountRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, account models.Account) (pgconn.CommandTag, error) {
	return tx.Exec(ctx, `INSERT INTO accounts (id, user_id, name, balance, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.UserID, account.Name, account.Balance, account.CreatedAt)
}

func (a AccountRepositoryImpl) FindByIdForUpdate(ctx context.Context, tx pgx.Tx, accountID, userID uuid.UUID) (models.Account, error) {
	if accountID == uuid.Nil {
		return models.Account{}, fmt.Errorf("invalid account ID: %s", accountID.String())
	}
	var account models.Account
	err := tx.QueryRow(ctx, `SELECT id, user_id, name, balance, created_at
		FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE`, accountID, userID).Scan(
		&account.ID, &account.UserID, &account.Name, &account.Balance, &account.CreatedAt)
	return account, err
}

func (a AccountRepositoryImpl) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`,
		balance,
		accountID,
	)
	return err
}

func (a AccountRepositoryImpl) Rename(ctx context.Context, db database.Conn, accountID, userID uuid.UUID, name string) (int64, error) {
	tag, err := db.Exec(ctx, `UPDATE accounts SET name = $1 WHERE id = $2 AND user_id = $3`,
		name, accountID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (a AccountRepositoryImpl) Delete(ctx context.Context, db database.Conn, accountID, userID uuid.UUID) (int64, error) {
	tag, err := db.Exec(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`,
		accountID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (a AccountRepositoryImpl) ListByUser(ctx context.Context, db database.Conn, userID uuid.UUID) ([]models.Account, error) {
	rows, err := db.Query(ctx, `SELECT id, user_id, name, balance, created_at
		FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err = rows.Scan(&account.ID, &account.UserID, &account.Name, &account.Balance, &account.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (a AccountRepositoryImpl) SumBalances(ctx context.Context, db database.Conn, userID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0) FROM accounts WHERE user_id = $1`, userID).Scan(&total)
	return total, err
}

func (a AccountRepositoryImpl) FirstByUser(ctx context.Context, db database.Conn, userID uuid.UUID) (models.Account, error) {
	var account models.Account
	err := db.QueryRow(ctx, `SELECT id, user_id, name, balance, created_at
		FROM accounts WHERE user_id = $1 ORDER BY created_at LIMIT 1`, userID).Scan(
		&account.ID, &account.UserID, &account.Name, &account.Balance, &account.CreatedAt)
	return account, err
}
