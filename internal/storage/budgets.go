package storage

import (
	"context"
	"time"

	"spendlog/internal/models"
)

// GetMonthlyBudget returns the user's budget row, or ErrNotFound if none was ever saved.
func (s *Store) GetMonthlyBudget(ctx context.Context, userID int64) (*models.MonthlyBudget, error) {
	var b models.MonthlyBudget
	err := s.q.QueryRowContext(ctx,
		"SELECT user_id, monthly_budget, monthly_savings_goal, updated_at FROM user_budget WHERE user_id = ?",
		userID,
	).Scan(&b.UserID, &b.Budget, &b.SavingsGoal, &b.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

// UpsertMonthlyBudget writes the budget row and appends to the update log.
// Callers wanting both writes to be atomic run it inside WithTx.
func (s *Store) UpsertMonthlyBudget(ctx context.Context, b models.MonthlyBudget) error {
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO user_budget (user_id, monthly_budget, monthly_savings_goal, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			monthly_budget = excluded.monthly_budget,
			monthly_savings_goal = excluded.monthly_savings_goal,
			updated_at = excluded.updated_at
	`, b.UserID, b.Budget, b.SavingsGoal, utc(b.UpdatedAt)); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx,
		"INSERT INTO user_budget_updates (user_id, updated_at) VALUES (?, ?)",
		b.UserID, utc(b.UpdatedAt),
	)
	return err
}

// BudgetUpdateTimes lists when the user's monthly budget was written at or after since.
func (s *Store) BudgetUpdateTimes(ctx context.Context, userID int64, since time.Time) ([]time.Time, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT updated_at FROM user_budget_updates WHERE user_id = ? AND updated_at >= ? ORDER BY updated_at",
		userID, utc(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateCategoryBudget inserts a category limit. An existing (user, category)
// pair yields ErrConflict and is left untouched.
func (s *Store) CreateCategoryBudget(ctx context.Context, b models.CategoryBudget) (*models.CategoryBudget, error) {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO category_budgets (user_id, category, budget_limit, created_at) VALUES (?, ?, ?, ?)",
		b.UserID, b.Category, b.Limit, utc(b.CreatedAt),
	)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	b.ID = id
	return &b, nil
}

// GetCategoryBudget looks up the limit for one category.
func (s *Store) GetCategoryBudget(ctx context.Context, userID int64, category string) (*models.CategoryBudget, error) {
	var b models.CategoryBudget
	err := s.q.QueryRowContext(ctx,
		"SELECT id, user_id, category, budget_limit, created_at FROM category_budgets WHERE user_id = ? AND category = ?",
		userID, category,
	).Scan(&b.ID, &b.UserID, &b.Category, &b.Limit, &b.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

// DeleteCategoryBudget removes the limit for one category.
func (s *Store) DeleteCategoryBudget(ctx context.Context, userID int64, category string) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM category_budgets WHERE user_id = ? AND category = ?",
		userID, category,
	)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// CategoryBudgetStatuses joins every category budget with the user's spend in
// that category within r. Remaining is limit minus spend and may be negative.
func (s *Store) CategoryBudgetStatuses(ctx context.Context, userID int64, r TimeRange) ([]models.CategoryBudgetStatus, error) {
	clause, args := r.where("t.date", []any{userID})
	args = append(args, userID)

	rows, err := s.q.QueryContext(ctx, `
		SELECT cb.category, cb.budget_limit, COALESCE(SUM(t.amount), 0)
		FROM category_budgets cb
		LEFT JOIN transactions t
			ON t.category = cb.category AND t.user_id = ?`+clause+`
		WHERE cb.user_id = ?
		GROUP BY cb.category, cb.budget_limit
		ORDER BY cb.category
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CategoryBudgetStatus
	for rows.Next() {
		var st models.CategoryBudgetStatus
		if err := rows.Scan(&st.Category, &st.Limit, &st.Spent); err != nil {
			return nil, err
		}
		st.Remaining = st.Limit - st.Spent
		out = append(out, st)
	}
	return out, rows.Err()
}
