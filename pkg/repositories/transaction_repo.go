package repositories

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sahanr/finance-tracker/pkg/database"
	"github.com/sahanr/finance-tracker/pkg/models"
)

// TransactionRepository defines the interface for the transaction ledger table.
type TransactionRepository interface {
	// Create inserts a ledger row. Called last in the unit of work, after the
	// balances it describes are already consistent.
	Create(ctx context.Context, tx pgx.Tx, txn models.Transaction) (pgconn.CommandTag, error)
	// FindByIdForUser reads a transaction scoped by its owning user.
	FindByIdForUser(ctx context.Context, tx pgx.Tx, txnID, userID uuid.UUID) (models.Transaction, error)
	// Delete removes a ledger row within the caller's transaction.
	Delete(ctx context.Context, tx pgx.Tx, txnID uuid.UUID) error
	// ListByUser returns transactions annotated with account names, newest
	// first. accountID filters by source account when non-nil; limit <= 0
	// means no limit.
	ListByUser(ctx context.Context, db database.Conn, userID uuid.UUID, accountID *uuid.UUID, limit int) ([]models.TransactionRecord, error)
	// MonthlyTotals returns income/expense sums per calendar month over the
	// trailing 12 months, newest month first.
	MonthlyTotals(ctx context.Context, db database.Conn, userID uuid.UUID) ([]models.MonthlyTotal, error)
}

type TransactionRepositoryImpl struct {
}

func NewTransactionRepository() TransactionRepository {
	return &TransactionRepositoryImpl{}
}

func (t TransactionRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, txn models.Transaction) (pgconn.CommandTag, error) {
	return tx.Exec(ctx, `
						INSERT INTO transactions (id, user_id, account_id, type, amount, description, transfer_to_account_id, created_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID,
		txn.UserID,
		txn.AccountID,
		txn.Kind,
		txn.Amount,
		txn.Description,
		txn.TransferToAccountID,
		txn.CreatedAt,
	)
}

func (t TransactionRepositoryImpl) FindByIdForUser(ctx context.Context, tx pgx.Tx, txnID, userID uuid.UUID) (models.Transaction, error) {
	if txnID == uuid.Nil {
		return models.Transaction{}, errors.New("transaction ID cannot be nil")
	}
	var txn models.Transaction
	err := tx.QueryRow(ctx, `SELECT id, user_id, account_id, type, amount, COALESCE(description, ''), transfer_to_account_id, created_at
		FROM transactions WHERE id = $1 AND user_id = $2`, txnID, userID).Scan(
		&txn.ID, &txn.UserID, &txn.AccountID, &txn.Kind, &txn.Amount, &txn.Description, &txn.TransferToAccountID, &txn.CreatedAt)
	return txn, err
}

func (t TransactionRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, txnID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, txnID)
	return err
}

func (t TransactionRepositoryImpl) ListByUser(ctx context.Context, db database.Conn, userID uuid.UUID, accountID *uuid.UUID, limit int) ([]models.TransactionRecord, error) {
	query := `SELECT t.id, t.user_id, t.account_id, t.type, t.amount, COALESCE(t.description, ''), t.transfer_to_account_id, t.created_at,
			a.name,
			CASE WHEN t.transfer_to_account_id IS NOT NULL THEN a2.name ELSE NULL END
		FROM transactions t
		JOIN accounts a ON t.account_id = a.id
		LEFT JOIN accounts a2 ON t.transfer_to_account_id = a2.id
		WHERE t.user_id = $1`
	args := []any{userID}
	if accountID != nil {
		query += ` AND t.account_id = $2`
		args = append(args, *accountID)
	}
	query += ` ORDER BY t.created_at DESC`
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		if err = rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.AccountID,
			&rec.Kind,
			&rec.Amount,
			&rec.Description,
			&rec.TransferToAccountID,
			&rec.CreatedAt,
			&rec.AccountName,
			&rec.TransferToAccountName,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (t TransactionRepositoryImpl) MonthlyTotals(ctx context.Context, db database.Conn, userID uuid.UUID) ([]models.MonthlyTotal, error) {
	rows, err := db.Query(ctx, `
		SELECT
			EXTRACT(YEAR FROM t.created_at)::int AS year,
			EXTRACT(MONTH FROM t.created_at)::int AS month,
			t.type,
			SUM(t.amount) AS total
		FROM transactions t
		WHERE t.user_id = $1
			AND t.type IN ('income', 'expense')
			AND t.created_at >= now() - interval '12 months'
		GROUP BY year, month, t.type
		ORDER BY year DESC, month DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.MonthlyTotal
	for rows.Next() {
		var mt models.MonthlyTotal
		if err = rows.Scan(&mt.Year, &mt.Month, &mt.Kind, &mt.Total); err != nil {
			return nil, err
		}
		totals = append(totals, mt)
	}
	return totals, rows.Err()
}
