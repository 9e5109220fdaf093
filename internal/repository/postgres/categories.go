package postgres

import (
	"context"
	"iter"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
)

const categoryColumns = `id, user_id, name, budget, spent, color, icon, created_at, updated_at`

func scanCategory(s scanner) (models.Category, error) {
	var c models.Category
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Budget, &c.Spent, &c.Color, &c.Icon, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCategory creates a new budget category
func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (user_id, name, budget, spent, color, icon, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, category.UserID, category.Name, category.Budget,
		category.Spent, category.Color, category.Icon).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return mapError("create category", err)
	}
	return nil
}

// FindCategory retrieves one of the user's categories
func (r *Repository) FindCategory(ctx context.Context, userID, id int64) (*models.Category, error) {
	c, err := scanCategory(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, mapError("find category", err)
	}
	return &c, nil
}

// FindCategoryByName retrieves a category by name, ignoring case
func (r *Repository) FindCategoryByName(ctx context.Context, userID int64, name string) (*models.Category, error) {
	c, err := scanCategory(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND lower(name) = lower(trim($2))`,
		userID, name))
	if err != nil {
		return nil, mapError("find category", err)
	}
	return &c, nil
}

// Categories lists the user's categories in creation order.
func (r *Repository) Categories(ctx context.Context, userID int64) iter.Seq2[models.Category, error] {
	return list(ctx, r.conn(ctx), "list categories", scanCategory,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 ORDER BY id`, userID)
}

// UpdateCategory applies patch to the locked row and stores the result.
func (r *Repository) UpdateCategory(ctx context.Context, userID, id int64, patch models.CategoryPatch) (*models.Category, error) {
	var out models.Category
	err := r.RunInTx(ctx, func(ctx context.Context) error {
		c, err := scanCategory(r.conn(ctx).QueryRowContext(ctx,
			`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id))
		if err != nil {
			return mapError("update category", err)
		}
		patch.Apply(&c)
		if err := c.Validate(); err != nil {
			return err
		}
		query := `
			UPDATE categories SET name = $3, budget = $4, color = $5, icon = $6, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1 AND id = $2
			RETURNING updated_at`
		if err := r.conn(ctx).QueryRowContext(ctx, query, userID, id, c.Name, c.Budget, c.Color, c.Icon).
			Scan(&c.UpdatedAt); err != nil {
			return mapError("update category", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory removes a category and returns the removed record.
func (r *Repository) DeleteCategory(ctx context.Context, userID, id int64) (*models.Category, error) {
	c, err := scanCategory(r.conn(ctx).QueryRowContext(ctx,
		`DELETE FROM categories WHERE user_id = $1 AND id = $2 RETURNING `+categoryColumns, userID, id))
	if err != nil {
		return nil, mapError("delete category", err)
	}
	return &c, nil
}

// AddCategorySpent adds delta to the spent total, never going below zero.
func (r *Repository) AddCategorySpent(ctx context.Context, userID int64, name string, delta decimal.Decimal) (*models.Category, error) {
	query := `
		UPDATE categories SET spent = GREATEST(spent + $3::numeric, 0), updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND lower(name) = lower(trim($2))
		RETURNING ` + categoryColumns
	c, err := scanCategory(r.conn(ctx).QueryRowContext(ctx, query, userID, name, delta))
	if err != nil {
		return nil, mapError("add category spent", err)
	}
	return &c, nil
}

// SetCategorySpent overwrites the spent total.
func (r *Repository) SetCategorySpent(ctx context.Context, userID, id int64, spent decimal.Decimal) (*models.Category, error) {
	query := `
		UPDATE categories SET spent = $3, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND id = $2
		RETURNING ` + categoryColumns
	c, err := scanCategory(r.conn(ctx).QueryRowContext(ctx, query, userID, id, spent))
	if err != nil {
		return nil, mapError("set category spent", err)
	}
	return &c, nil
}
