package core

import "github.com/shopspring/decimal"

// Summary is the singleton aggregate row tracking all-time totals.
// CurrentBalance always equals TotalIncome - TotalExpenses.
type Summary struct {
	ID             int64           `json:"id"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// CategoryExpense is an expense total aggregated by category for one month.
type CategoryExpense struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
}

// MonthlyReport holds aggregates scoped to a single calendar month, computed
// from transaction rows. It is intentionally distinct from the all-time
// Summary singleton and must never be read from it.
type MonthlyReport struct {
	MonthlyExpenses []CategoryExpense `json:"monthlyExpenses"`
	TotalIncome     decimal.Decimal   `json:"totalIncome"`
	TotalExpenses   decimal.Decimal   `json:"totalExpenses"`
	Balance         decimal.Decimal   `json:"balance"`
}
