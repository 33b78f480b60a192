package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
)

// ListCategories returns every category ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, budget FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Budget); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// RecordTransaction inserts a transaction and folds its amount into the
// summary singleton inside one SQL transaction, so the insert and the
// summary update are never observed apart. Returns the new row id.
func (s *Store) RecordTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (category_id, amount, description, date, type) VALUES (?, ?, ?, ?, ?)`,
		t.CategoryID, t.Amount, t.Description, t.Date, string(t.Type))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	// Summary arithmetic happens in decimal space rather than in SQL, so
	// repeated updates never accumulate floating-point drift.
	var totalIncome, totalExpenses decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT total_income, total_expenses FROM summary WHERE id = 1`).
		Scan(&totalIncome, &totalExpenses)
	if err != nil {
		return 0, fmt.Errorf("read summary: %w", err)
	}

	switch t.Type {
	case core.Income:
		totalIncome = totalIncome.Add(t.Amount)
	case core.Expense:
		totalExpenses = totalExpenses.Add(t.Amount)
	default:
		return 0, core.ErrInvalidTransactionType
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE summary SET total_income = ?, total_expenses = ?, current_balance = ? WHERE id = 1`,
		totalIncome, totalExpenses, totalIncome.Sub(totalExpenses))
	if err != nil {
		return 0, fmt.Errorf("update summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldTxnID, id,
		applog.FieldTxnType, string(t.Type),
		applog.FieldAmount, t.Amount.String())
	return id, nil
}

// ListTransactions returns all transactions joined to their category name,
// newest date first. Transactions without a category are intentionally
// absent, matching the report queries.
func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.category_id, t.amount, t.description, t.date, t.type, c.name
		FROM transactions t
		JOIN categories c ON t.category_id = c.id
		ORDER BY t.date DESC, t.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []core.Transaction{}
	for rows.Next() {
		var (
			t    core.Transaction
			desc sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.CategoryID, &t.Amount, &desc, &t.Date, &t.Type, &t.CategoryName); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Description = desc.String
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// CreateBudget inserts a budget row and returns its id.
func (s *Store) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, amount, period, start_date) VALUES (?, ?, ?, ?)`,
		b.CategoryID, b.Amount, string(b.Period), b.StartDate)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget id: %w", err)
	}
	return id, nil
}

// ListBudgets returns all budgets joined to their category name.
func (s *Store) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.category_id, b.amount, b.period, b.start_date, c.name
		FROM budgets b
		JOIN categories c ON b.category_id = c.id
		ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Amount, &b.Period, &b.StartDate, &b.CategoryName); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// Summary reads the all-time summary singleton.
func (s *Store) Summary(ctx context.Context) (core.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum core.Summary
	err := s.db.QueryRowContext(ctx,
		`SELECT id, total_income, total_expenses, current_balance FROM summary WHERE id = 1`).
		Scan(&sum.ID, &sum.TotalIncome, &sum.TotalExpenses, &sum.CurrentBalance)
	if err != nil {
		return core.Summary{}, fmt.Errorf("read summary: %w", err)
	}
	return sum, nil
}

// MonthlyReport computes the per-category expense totals and overall
// income/expense totals for one YYYY-MM month by scanning transaction rows.
// The month prefix is bound as a parameter, never spliced into the query,
// and the balance is derived from the filtered sums rather than the
// all-time summary singleton.
func (s *Store) MonthlyReport(ctx context.Context, yearMonth string) (core.MonthlyReport, error) {
	if err := core.ValidateYearMonth(yearMonth); err != nil {
		return core.MonthlyReport{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	report := core.MonthlyReport{MonthlyExpenses: []core.CategoryExpense{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.category_id, c.name, ROUND(SUM(t.amount), 2)
		FROM transactions t
		JOIN categories c ON t.category_id = c.id
		WHERE t.type = 'expense' AND t.date LIKE ? || '%'
		GROUP BY t.category_id, c.name
		ORDER BY t.category_id`, yearMonth)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("monthly expenses by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ce core.CategoryExpense
		if err := rows.Scan(&ce.CategoryID, &ce.CategoryName, &ce.Total); err != nil {
			return core.MonthlyReport{}, fmt.Errorf("scan category expense: %w", err)
		}
		report.MonthlyExpenses = append(report.MonthlyExpenses, ce)
	}
	if err := rows.Err(); err != nil {
		return core.MonthlyReport{}, err
	}

	if report.TotalIncome, err = s.monthTotal(ctx, core.Income, yearMonth); err != nil {
		return core.MonthlyReport{}, err
	}
	if report.TotalExpenses, err = s.monthTotal(ctx, core.Expense, yearMonth); err != nil {
		return core.MonthlyReport{}, err
	}
	report.Balance = report.TotalIncome.Sub(report.TotalExpenses)

	return report, nil
}

func (s *Store) monthTotal(ctx context.Context, typ core.TransactionType, yearMonth string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		`SELECT ROUND(COALESCE(SUM(amount), 0), 2) FROM transactions WHERE type = ? AND date LIKE ? || '%'`,
		string(typ), yearMonth).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("month total for %s: %w", typ, err)
	}
	return total, nil
}

// CreateUser stores a new user with an already-hashed password.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password) VALUES (?, ?)`,
		core.NormalizeEmail(email), passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UserByEmail looks up a user for credential checks.
func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u core.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password FROM users WHERE email = ?`,
		core.NormalizeEmail(email)).
		Scan(&u.ID, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
