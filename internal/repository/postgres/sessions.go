package postgres

import (
	"context"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
)

// CreateSession stores a new login session
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, last_activity, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.CreatedAt, s.LastActivity, s.ExpiresAt)
	if err != nil {
		return mapError("create session", err)
	}
	return nil
}

// FindSession retrieves one of the user's sessions by id
func (r *Repository) FindSession(ctx context.Context, userID int64, id string) (*models.Session, error) {
	s := &models.Session{}
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, user_id, created_at, last_activity, expires_at FROM sessions WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.LastActivity, &s.ExpiresAt)
	if err != nil {
		return nil, mapError("find session", err)
	}
	return s, nil
}

// TouchSession records activity on a session
func (r *Repository) TouchSession(ctx context.Context, userID int64, id string, at time.Time) error {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE sessions SET last_activity = $3 WHERE id = $1 AND user_id = $2`, id, userID, at)
	if err != nil {
		return mapError("touch session", err)
	}
	return requireAffected(res, "touch session")
}

// DeleteSession removes a session; removing a missing session is not an error.
func (r *Repository) DeleteSession(ctx context.Context, userID int64, id string) error {
	if _, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return mapError("delete session", err)
	}
	return nil
}

// DeleteIdleSessions removes sessions idle since before idleBefore or expired at now.
func (r *Repository) DeleteIdleSessions(ctx context.Context, idleBefore, now time.Time) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM sessions WHERE last_activity < $1 OR expires_at <= $2`, idleBefore, now)
	if err != nil {
		return 0, mapError("delete idle sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("delete idle sessions", err)
	}
	return n, nil
}
