package views

import (
	"github.com/sahanr/finance-tracker/pkg/models"
)

type MonthlySummaryView struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Type  string `json:"type"`
	Total string `json:"total"`
}

type DashboardResponse struct {
	Accounts           []AccountView        `json:"accounts"`
	TotalBalance       string               `json:"total_balance"`
	RecentTransactions []TransactionView    `json:"recent_transactions"`
	MonthlySummary     []MonthlySummaryView `json:"monthly_summary"`
}

func NewMonthlySummaryViews(totals []models.MonthlyTotal) []MonthlySummaryView {
	views := make([]MonthlySummaryView, 0, len(totals))
	for _, mt := range totals {
		views = append(views, MonthlySummaryView{
			Year:  mt.Year,
			Month: mt.Month,
			Type:  string(mt.Kind),
			Total: mt.Total.StringFixed(2),
		})
	}
	return views
}
