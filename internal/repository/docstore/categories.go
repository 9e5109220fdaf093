package docstore

import (
	"context"
	"fmt"
	"iter"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
)

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return s.do(ctx, func(t *txn) error {
		d, err := t.userData(category.UserID)
		if err != nil {
			return err
		}
		if indexOf(d.Categories, func(c models.Category) bool { return models.SameName(c.Name, category.Name) }) >= 0 {
			return duplicateName("category", category.Name)
		}
		now := s.now()
		category.ID = s.nextID()
		category.CreatedAt = now
		category.UpdatedAt = now
		d.Categories = append(d.Categories, *category)
		t.touch(category.UserID)
		return nil
	})
}

// category locates a category by match and runs fn on it.
func (s *Store) category(ctx context.Context, userID int64, what string, match func(c models.Category) bool,
	fn func(d *userData, i int) (bool, error)) (*models.Category, error) {
	var out models.Category
	err := s.do(ctx, func(t *txn) error {
		d, err := t.userData(userID)
		if err != nil {
			return err
		}
		i := indexOf(d.Categories, match)
		if i < 0 {
			return fmt.Errorf("category %s: %w", what, models.ErrNotFound)
		}
		out = d.Categories[i]
		if fn == nil {
			return nil
		}
		changed, err := fn(d, i)
		if err != nil {
			return err
		}
		if changed {
			if i < len(d.Categories) && d.Categories[i].ID == out.ID {
				out = d.Categories[i]
			}
			t.touch(userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func byID(id int64) (string, func(c models.Category) bool) {
	return fmt.Sprint(id), func(c models.Category) bool { return c.ID == id }
}

func byName(name string) (string, func(c models.Category) bool) {
	return fmt.Sprintf("%q", name), func(c models.Category) bool { return models.SameName(c.Name, name) }
}

func (s *Store) FindCategory(ctx context.Context, userID, id int64) (*models.Category, error) {
	what, match := byID(id)
	return s.category(ctx, userID, what, match, nil)
}

func (s *Store) FindCategoryByName(ctx context.Context, userID int64, name string) (*models.Category, error) {
	what, match := byName(name)
	return s.category(ctx, userID, what, match, nil)
}

func (s *Store) Categories(ctx context.Context, userID int64) iter.Seq2[models.Category, error] {
	return seq(s, ctx, func(t *txn) ([]models.Category, error) {
		d, err := t.userData(userID)
		if err != nil {
			return nil, err
		}
		return append([]models.Category(nil), d.Categories...), nil
	})
}

func (s *Store) UpdateCategory(ctx context.Context, userID, id int64, patch models.CategoryPatch) (*models.Category, error) {
	what, match := byID(id)
	return s.category(ctx, userID, what, match, func(d *userData, i int) (bool, error) {
		c := d.Categories[i]
		patch.Apply(&c)
		if err := c.Validate(); err != nil {
			return false, err
		}
		if indexOf(d.Categories, func(o models.Category) bool { return o.ID != id && models.SameName(o.Name, c.Name) }) >= 0 {
			return false, duplicateName("category", c.Name)
		}
		c.UpdatedAt = s.now()
		d.Categories[i] = c
		return true, nil
	})
}

func (s *Store) DeleteCategory(ctx context.Context, userID, id int64) (*models.Category, error) {
	what, match := byID(id)
	return s.category(ctx, userID, what, match, func(d *userData, i int) (bool, error) {
		d.Categories = append(d.Categories[:i], d.Categories[i+1:]...)
		return true, nil
	})
}

func (s *Store) AddCategorySpent(ctx context.Context, userID int64, name string, delta decimal.Decimal) (*models.Category, error) {
	what, match := byName(name)
	return s.category(ctx, userID, what, match, func(d *userData, i int) (bool, error) {
		c := &d.Categories[i]
		c.Spent = decimal.Max(c.Spent.Add(delta), decimal.Zero)
		c.UpdatedAt = s.now()
		return true, nil
	})
}

func (s *Store) SetCategorySpent(ctx context.Context, userID, id int64, spent decimal.Decimal) (*models.Category, error) {
	what, match := byID(id)
	return s.category(ctx, userID, what, match, func(d *userData, i int) (bool, error) {
		c := &d.Categories[i]
		c.Spent = spent
		c.UpdatedAt = s.now()
		return true, nil
	})
}
