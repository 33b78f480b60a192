package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Weekly  BudgetPeriod = "weekly"
	Monthly BudgetPeriod = "monthly"
)

// DateLayout is the wire and storage format for transaction and budget dates.
const DateLayout = "2006-01-02"

// YearMonthLayout is the prefix used to scope monthly reports.
const YearMonthLayout = "2006-01"

type (
	TransactionType string

	BudgetPeriod string

	Category struct {
		ID     int64           `json:"id"`
		Name   string          `json:"name"`
		Budget decimal.Decimal `json:"budget"`
	}

	// Transaction is an immutable income or expense record. CategoryName is
	// populated only when the row is read joined to its category.
	Transaction struct {
		ID           int64           `json:"id"`
		CategoryID   *int64          `json:"category_id"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
		Date         string          `json:"date"`
		Type         TransactionType `json:"type"`
		CategoryName string          `json:"category_name,omitempty"`
	}

	Budget struct {
		ID           int64           `json:"id"`
		CategoryID   int64           `json:"category_id"`
		Amount       decimal.Decimal `json:"amount"`
		Period       BudgetPeriod    `json:"period"`
		StartDate    string          `json:"start_date"`
		CategoryName string          `json:"category_name,omitempty"`
	}

	User struct {
		ID           int64
		Email        string
		PasswordHash string
	}
)

var (
	ErrInvalidAmount          = errors.New("amount must be a positive number")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidTransactionType = errors.New("type must be income or expense")
	ErrInvalidBudgetPeriod    = errors.New("period must be weekly or monthly")
	ErrMissingCategory        = errors.New("category is required")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (p BudgetPeriod) Valid() bool {
	return p == Weekly || p == Monthly
}

// ValidateDate checks that s is a real calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateYearMonth checks that s is a YYYY-MM month reference.
func ValidateYearMonth(s string) error {
	if _, err := time.Parse(YearMonthLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if !ValidAmount(t.Amount) {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if err := ValidateDate(t.Date); err != nil {
		return err
	}
	return nil
}

func (b Budget) Validate() error {
	if b.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if !ValidAmount(b.Amount) {
		return ErrInvalidAmount
	}
	if !b.Period.Valid() {
		return ErrInvalidBudgetPeriod
	}
	if err := ValidateDate(b.StartDate); err != nil {
		return err
	}
	return nil
}

// DefaultCategories are seeded once when a fresh store is initialized.
// The seed is keyed on the unique category name, so re-running it is a no-op.
var DefaultCategories = []string{
	"Food", "Transportation", "Housing", "Entertainment",
	"Shopping", "Healthcare", "Utilities", "Income",
}

// NormalizeEmail lowercases and trims an email address for storage lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
