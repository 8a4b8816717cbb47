package views

import (
	"time"

	"github.com/sahanr/finance-tracker/pkg/models"
)

type CreateAccountRequest struct {
	Name    string `json:"name"`
	Balance Amount `json:"balance"`
}

type RenameAccountRequest struct {
	Name string `json:"name"`
}

type AccountView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

func NewAccountView(account models.Account) AccountView {
	return AccountView{
		ID:        account.ID.String(),
		Name:      account.Name,
		Balance:   account.Balance.StringFixed(2),
		CreatedAt: account.CreatedAt,
	}
}

func NewAccountViews(accounts []models.Account) []AccountView {
	views := make([]AccountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, NewAccountView(account))
	}
	return views
}
