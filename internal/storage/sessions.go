package storage

import (
	"context"
	"time"

	"spendlog/internal/models"
)

// CreateSession creates a new session for a user.
func (s *Store) CreateSession(ctx context.Context, token string, userID int64, expiresAt, now time.Time) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, utc(expiresAt), utc(now),
	)
	return mapError(err)
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid at now and returns
// the associated user together with the session timestamps.
func (s *Store) ValidateSession(ctx context.Context, token string, now time.Time) (*SessionInfo, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT u.id, u.first_name, u.last_name, u.email, u.username, u.password_hash,
		       COALESCE(u.budget_password_hash, ''), u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, utc(now))

	var u models.User
	var info SessionInfo
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PasswordHash,
		&u.BudgetPasswordHash, &u.CreatedAt, &info.LastActivity, &info.ExpiresAt); err != nil {
		return nil, mapError(err)
	}
	info.User = &u
	return &info, nil
}

// RenewSession moves a session's expiry forward.
func (s *Store) RenewSession(ctx context.Context, token string, newExpiresAt, now time.Time) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		utc(now), utc(newExpiresAt), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteUserSessions logs a user out everywhere. Used after a password reset.
func (s *Store) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

// CleanExpiredSessions removes all sessions that expired before now.
func (s *Store) CleanExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", utc(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
