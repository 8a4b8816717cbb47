package views

import (
	"strings"
	"time"

	"github.com/sahanr/finance-tracker/pkg/models"
	"github.com/shopspring/decimal"
)

// Amount is a JSON money field. It accepts both quoted ("42.50") and bare
// (42.5) numbers and defers parsing, so the caller can tell a missing field
// from an unparseable one and keep arithmetic in exact decimals.
type Amount struct {
	raw string
}

func NewAmount(s string) Amount {
	return Amount{raw: s}
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	a.raw = strings.Trim(s, `"`)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.raw + `"`), nil
}

// IsSet reports whether the field was present and non-empty.
func (a Amount) IsSet() bool {
	return a.raw != ""
}

// Decimal parses the raw value as an exact decimal.
func (a Amount) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(a.raw)
}

type CreateTransactionRequest struct {
	AccountID           string `json:"account_id"`
	Type                string `json:"type"`
	Amount              Amount `json:"amount"`
	Description         string `json:"description"`
	TransferToAccountID string `json:"transfer_to_account_id"`
}

type TransactionView struct {
	ID                    string    `json:"id"`
	AccountID             string    `json:"account_id"`
	AccountName           string    `json:"account_name"`
	Type                  string    `json:"type"`
	Amount                string    `json:"amount"`
	Description           string    `json:"description,omitempty"`
	TransferToAccountID   *string   `json:"transfer_to_account_id,omitempty"`
	TransferToAccountName *string   `json:"transfer_to_account_name,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewTransactionView converts a ledger record for the wire. Amounts are
// rendered at the fixed two-decimal scale; the exact decimal never becomes a
// binary float on the way out.
func NewTransactionView(rec models.TransactionRecord) TransactionView {
	view := TransactionView{
		ID:                    rec.ID.String(),
		AccountID:             rec.AccountID.String(),
		AccountName:           rec.AccountName,
		Type:                  string(rec.Kind),
		Amount:                rec.Amount.StringFixed(2),
		Description:           rec.Description,
		TransferToAccountName: rec.TransferToAccountName,
		CreatedAt:             rec.CreatedAt,
	}
	if rec.TransferToAccountID != nil {
		id := rec.TransferToAccountID.String()
		view.TransferToAccountID = &id
	}
	return view
}

func NewTransactionViews(records []models.TransactionRecord) []TransactionView {
	views := make([]TransactionView, 0, len(records))
	for _, rec := range records {
		views = append(views, NewTransactionView(rec))
	}
	return views
}
