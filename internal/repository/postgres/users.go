package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/smartbank/internal/models"
)

const userColumns = `id, first_name, last_name, email, phone, password_hash, currency, language, theme,
	savings_goal, emergency_fund, failed_attempts, locked_until, last_login, last_activity, created_at, updated_at`

func scanUser(s scanner) (models.User, error) {
	var u models.User
	var lockedUntil, lastLogin, lastActivity sql.NullTime
	err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Currency, &u.Language, &u.Theme, &u.SavingsGoal, &u.EmergencyFund, &u.FailedAttempts,
		&lockedUntil, &lastLogin, &lastActivity, &u.CreatedAt, &u.UpdatedAt)
	u.LockedUntil = nullTime(lockedUntil)
	u.LastLogin = nullTime(lastLogin)
	u.LastActivity = nullTime(lastActivity)
	return u, err
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, phone, password_hash, currency, language, theme,
			savings_goal, emergency_fund, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, user.FirstName, user.LastName, user.Email, user.Phone,
		user.PasswordHash, user.Currency, user.Language, user.Theme, user.SavingsGoal, user.EmergencyFund).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapError("create user", err)
	}
	return nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.conn(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("find user", err)
	}
	return &u, nil
}

const (
	userByEmailQuery     = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	lockUserByEmailQuery = userByEmailQuery + ` FOR UPDATE`
)

// FindUserByEmail retrieves a user by email, ignoring case
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.conn(ctx).QueryRowContext(ctx, userByEmailQuery, email))
	if err != nil {
		return nil, mapError("find user", err)
	}
	return &u, nil
}

// LockUserByEmail is FindUserByEmail holding a row lock until the
// transaction bound to ctx ends.
func (r *Repository) LockUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); !ok {
		return nil, fmt.Errorf("failed to lock user: no transaction in context")
	}
	u, err := scanUser(r.conn(ctx).QueryRowContext(ctx, lockUserByEmailQuery, email))
	if err != nil {
		return nil, mapError("lock user", err)
	}
	return &u, nil
}

// UpdateUser stores the mutable user fields: profile, preferences and login state.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET first_name = $2, last_name = $3, phone = $4, password_hash = $5,
			currency = $6, language = $7, theme = $8, savings_goal = $9, emergency_fund = $10,
			failed_attempts = $11, locked_until = $12, last_login = $13, last_activity = $14,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, user.ID, user.FirstName, user.LastName, user.Phone,
		user.PasswordHash, user.Currency, user.Language, user.Theme, user.SavingsGoal, user.EmergencyFund,
		user.FailedAttempts, user.LockedUntil, user.LastLogin, user.LastActivity).
		Scan(&user.UpdatedAt)
	if err != nil {
		return mapError("update user", err)
	}
	return nil
}
