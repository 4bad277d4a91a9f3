package storage

import (
	"context"
	"database/sql"
	"time"

	"spendlog/internal/models"
)

const userColumns = "id, first_name, last_name, email, username, password_hash, COALESCE(budget_password_hash, ''), created_at"

// NewUser carries the fields needed to register an account.
type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	Username     string
	PasswordHash string
}

// CreateUser inserts a user. Duplicate email or username yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u NewUser, now time.Time) (*models.User, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, username, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash, utc(now),
	)
	if err != nil {
		return nil, mapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// EmailExists reports whether an account already uses email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&n)
	return n > 0, err
}

// UpdatePassword replaces the login password hash.
func (s *Store) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.q.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// SetBudgetPassword stores the budget password hash only if none is set yet.
// It returns ErrConflict if one already exists.
func (s *Store) SetBudgetPassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE users SET budget_password_hash = ? WHERE id = ? AND budget_password_hash IS NULL",
		hash, userID,
	)
	if err != nil {
		return err
	}
	if err := affectedOne(res); err != nil {
		if _, getErr := s.GetUserByID(ctx, userID); getErr != nil {
			return getErr
		}
		return ErrConflict
	}
	return nil
}

// UserCount returns the number of users in the database.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username,
		&u.PasswordHash, &u.BudgetPasswordHash, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}
