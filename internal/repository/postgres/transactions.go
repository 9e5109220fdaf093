package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"

	"github.com/Dan9191/smartbank/internal/models"
)

const transactionColumns = `id, user_id, type, amount, category, description, date, location, method, notes,
	bank_id, created_at`

func scanTransaction(s scanner) (models.Transaction, error) {
	var t models.Transaction
	var bankID sql.NullInt64
	err := s.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Category, &t.Description, &t.Date,
		&t.Location, &t.Method, &t.Notes, &bankID, &t.CreatedAt)
	if bankID.Valid {
		t.BankID = &bankID.Int64
	}
	return t, err
}

// CreateTransaction creates a new transaction in the database
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, type, amount, category, description, date, location, method, notes,
			bank_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, tx.UserID, tx.Type, tx.Amount, tx.Category, tx.Description,
		tx.Date, tx.Location, tx.Method, tx.Notes, tx.BankID).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return mapError("create transaction", err)
	}
	return nil
}

// FindTransaction retrieves one of the user's transactions
func (r *Repository) FindTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, mapError("find transaction", err)
	}
	return &t, nil
}

// Transactions lists the user's transactions matching filter, newest first.
func (r *Repository) Transactions(ctx context.Context, userID int64, filter models.TransactionFilter) iter.Seq2[models.Transaction, error] {
	query, args := transactionQuery(userID, filter)
	return list(ctx, r.conn(ctx), "list transactions", scanTransaction, query, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches s anywhere, treating LIKE wildcards in s literally.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func transactionQuery(userID int64, filter models.TransactionFilter) (string, []any) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Category != "" {
		add("lower(category) = lower(trim($%d))", filter.Category)
	}
	if filter.BankID != nil {
		add("bank_id = $%d", *filter.BankID)
	}
	if !filter.From.IsZero() {
		add("date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("date <= $%d", filter.To)
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		where = append(where, fmt.Sprintf(`(lower(description) LIKE $%d ESCAPE '\' OR lower(category) LIKE $%d ESCAPE '\')`, n, n))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// DeleteTransaction removes a transaction and returns the removed record.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(r.conn(ctx).QueryRowContext(ctx,
		`DELETE FROM transactions WHERE user_id = $1 AND id = $2 RETURNING `+transactionColumns, userID, id))
	if err != nil {
		return nil, mapError("delete transaction", err)
	}
	return &t, nil
}

// RenameCategoryReferences points transactions tagged oldName at newName.
func (r *Repository) RenameCategoryReferences(ctx context.Context, userID int64, oldName, newName string) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE transactions SET category = $3 WHERE user_id = $1 AND lower(category) = lower(trim($2))`,
		userID, oldName, newName)
	if err != nil {
		return 0, mapError("rename category references", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("rename category references", err)
	}
	return n, nil
}
