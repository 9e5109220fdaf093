package docstore

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/Dan9191/smartbank/internal/models"
)

func newerFirst(a, b models.Transaction) int {
	return models.NewerFirst(&a, &b)
}

// CreateTransaction inserts tx keeping the list newest first.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return s.do(ctx, func(t *txn) error {
		d, err := t.userData(tx.UserID)
		if err != nil {
			return err
		}
		if tx.BankID != nil && indexOf(d.Banks, func(b bankDoc) bool { return b.ID == *tx.BankID }) < 0 {
			return notFound("bank", *tx.BankID)
		}
		tx.ID = s.nextID()
		tx.CreatedAt = s.now()
		i, _ := slices.BinarySearchFunc(d.Transactions, *tx, newerFirst)
		d.Transactions = slices.Insert(d.Transactions, i, *tx)
		t.touch(tx.UserID)
		return nil
	})
}

func (s *Store) FindTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	var out models.Transaction
	err := s.do(ctx, func(t *txn) error {
		d, err := t.userData(userID)
		if err != nil {
			return err
		}
		i := indexOf(d.Transactions, func(o models.Transaction) bool { return o.ID == id })
		if i < 0 {
			return notFound("transaction", id)
		}
		out = d.Transactions[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) Transactions(ctx context.Context, userID int64, filter models.TransactionFilter) iter.Seq2[models.Transaction, error] {
	return seq(s, ctx, func(t *txn) ([]models.Transaction, error) {
		d, err := t.userData(userID)
		if err != nil {
			return nil, err
		}
		var out []models.Transaction
		for i := range d.Transactions {
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
			if filter.Match(&d.Transactions[i]) {
				out = append(out, d.Transactions[i])
			}
		}
		return out, nil
	})
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	var out models.Transaction
	err := s.do(ctx, func(t *txn) error {
		d, err := t.userData(userID)
		if err != nil {
			return err
		}
		i := indexOf(d.Transactions, func(o models.Transaction) bool { return o.ID == id })
		if i < 0 {
			return notFound("transaction", id)
		}
		out = d.Transactions[i]
		d.Transactions = slices.Delete(d.Transactions, i, i+1)
		t.touch(userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) RenameCategoryReferences(ctx context.Context, userID int64, oldName, newName string) (int64, error) {
	var n int64
	err := s.do(ctx, func(t *txn) error {
		d, err := t.userData(userID)
		if err != nil {
			return err
		}
		oldName = strings.TrimSpace(oldName)
		for i := range d.Transactions {
			if models.SameName(d.Transactions[i].Category, oldName) {
				d.Transactions[i].Category = newName
				n++
			}
		}
		if n > 0 {
			t.touch(userID)
		}
		return nil
	})
	return n, err
}
