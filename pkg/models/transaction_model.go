package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sahanr/finance-tracker/pkg"
	"github.com/shopspring/decimal"
)

// Transaction maps to table `transactions`. Rows are immutable after insert;
// deletion is the only lifecycle event.
type Transaction struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	AccountID           uuid.UUID
	Kind                pkg.TxKind
	Amount              decimal.Decimal
	Description         string
	TransferToAccountID *uuid.UUID // set iff Kind == transfer; nulled when the destination account is deleted
	CreatedAt           time.Time
}

// TransactionRecord is a Transaction annotated with account display names for
// list and dashboard queries.
type TransactionRecord struct {
	Transaction
	AccountName           string
	TransferToAccountName *string
}

// MonthlyTotal is one (year, month, kind) bucket of the dashboard summary.
type MonthlyTotal struct {
	Year  int
	Month int
	Kind  pkg.TxKind
	Total decimal.Decimal
}
