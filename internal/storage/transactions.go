package storage

import (
	"context"
	"database/sql"

	"spendlog/internal/models"
)

const transactionColumns = "id, user_id, amount, category, description, date"

// TransactionQuery selects a user's transactions. An empty Category matches
// every category; otherwise the match is exact.
type TransactionQuery struct {
	Range    TimeRange
	Category string
}

// InsertTransaction records an expense and returns it with its new ID.
func (s *Store) InsertTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO transactions (user_id, amount, category, description, date) VALUES (?, ?, ?, ?, ?)",
		t.UserID, t.Amount, t.Category, t.Description, utc(t.Date),
	)
	if err != nil {
		return nil, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, t.UserID, id)
}

// GetTransaction retrieves one of the user's transactions.
func (s *Store) GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND user_id = ?",
		id, userID,
	)
	var t models.Transaction
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Category, &t.Description, &t.Date); err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

// UpdateTransaction changes the amount and description of one of the user's transactions.
func (s *Store) UpdateTransaction(ctx context.Context, userID, id, amount int64, description string) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE transactions SET amount = ?, description = ? WHERE id = ? AND user_id = ?",
		amount, description, id, userID,
	)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// DeleteTransaction removes one of the user's transactions.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// ListTransactions returns the matching transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID int64, q TransactionQuery) ([]models.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = ?"
	args := []any{userID}

	clause, args := q.Range.where("date", args)
	query += clause
	if q.Category != "" {
		query += " AND category = ?"
		args = append(args, q.Category)
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Category, &t.Description, &t.Date); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DistinctCategories returns every category the user has recorded, sorted.
func (s *Store) DistinctCategories(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT DISTINCT category FROM transactions WHERE user_id = ? ORDER BY category",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CategoryTotals sums the user's spend per category within r, ordered by category.
func (s *Store) CategoryTotals(ctx context.Context, userID int64, r TimeRange) ([]models.CategoryTotal, error) {
	clause, args := r.where("date", []any{userID})
	rows, err := s.q.QueryContext(ctx,
		"SELECT category, SUM(amount) FROM transactions WHERE user_id = ?"+clause+
			" GROUP BY category ORDER BY category",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CategoryTotal
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// SumTransactions totals the user's spend within r.
func (s *Store) SumTransactions(ctx context.Context, userID int64, r TimeRange) (int64, error) {
	clause, args := r.where("date", []any{userID})
	var total sql.NullInt64
	err := s.q.QueryRowContext(ctx,
		"SELECT SUM(amount) FROM transactions WHERE user_id = ?"+clause, args...,
	).Scan(&total)
	return total.Int64, err
}

// DatedAmounts returns raw (date, amount) pairs within r, oldest first.
// Calendar bucketing happens in the caller's time zone.
func (s *Store) DatedAmounts(ctx context.Context, userID int64, r TimeRange) ([]models.DatedAmount, error) {
	clause, args := r.where("date", []any{userID})
	rows, err := s.q.QueryContext(ctx,
		"SELECT date, amount FROM transactions WHERE user_id = ?"+clause+" ORDER BY date",
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DatedAmount
	for rows.Next() {
		var d models.DatedAmount
		if err := rows.Scan(&d.Date, &d.Amount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
