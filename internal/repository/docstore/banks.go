package docstore

import (
	"context"
	"iter"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
)

func (s *Store) CreateBank(ctx context.Context, bank *models.Bank) error {
	return s.do(ctx, func(t *txn) error {
		d, err := t.userData(bank.UserID)
		if err != nil {
			return err
		}
		if indexOf(d.Banks, func(b bankDoc) bool { return models.SameName(b.Name, bank.Name) }) >= 0 {
			return duplicateName("bank", bank.Name)
		}
		now := s.now()
		bank.ID = s.nextID()
		bank.CreatedAt = now
		bank.UpdatedAt = now
		d.Banks = append(d.Banks, newBankDoc(*bank))
		t.touch(bank.UserID)
		return nil
	})
}

// bank runs fn on the stored bank; fn reports whether it changed anything.
func (s *Store) bank(ctx context.Context, userID, id int64, fn func(d *userData, i int) (bool, error)) (*models.Bank, error) {
	var out models.Bank
	err := s.do(ctx, func(t *txn) error {
		d, err := t.userData(userID)
		if err != nil {
			return err
		}
		i := indexOf(d.Banks, func(b bankDoc) bool { return b.ID == id })
		if i < 0 {
			return notFound("bank", id)
		}
		out = d.Banks[i].bank()
		if fn == nil {
			return nil
		}
		changed, err := fn(d, i)
		if err != nil {
			return err
		}
		if changed {
			if i < len(d.Banks) && d.Banks[i].ID == id {
				out = d.Banks[i].bank()
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

func (s *Store) FindBank(ctx context.Context, userID, id int64) (*models.Bank, error) {
	return s.bank(ctx, userID, id, nil)
}

func (s *Store) Banks(ctx context.Context, userID int64) iter.Seq2[models.Bank, error] {
	return seq(s, ctx, func(t *txn) ([]models.Bank, error) {
		d, err := t.userData(userID)
		if err != nil {
			return nil, err
		}
		out := make([]models.Bank, 0, len(d.Banks))
		for _, b := range d.Banks {
			out = append(out, b.bank())
		}
		return out, nil
	})
}

func (s *Store) UpdateBank(ctx context.Context, userID, id int64, patch models.BankPatch) (*models.Bank, error) {
	return s.bank(ctx, userID, id, func(d *userData, i int) (bool, error) {
		b := d.Banks[i].bank()
		patch.Apply(&b)
		if err := b.Validate(); err != nil {
			return false, err
		}
		if indexOf(d.Banks, func(o bankDoc) bool { return o.ID != id && models.SameName(o.Name, b.Name) }) >= 0 {
			return false, duplicateName("bank", b.Name)
		}
		b.UpdatedAt = s.now()
		d.Banks[i] = newBankDoc(b)
		return true, nil
	})
}

func (s *Store) DeleteBank(ctx context.Context, userID, id int64) (*models.Bank, error) {
	return s.bank(ctx, userID, id, func(d *userData, i int) (bool, error) {
		d.Banks = append(d.Banks[:i], d.Banks[i+1:]...)
		for j := range d.Transactions {
			if b := d.Transactions[j].BankID; b != nil && *b == id {
				d.Transactions[j].BankID = nil
			}
		}
		return true, nil
	})
}

func (s *Store) AdjustBankBalance(ctx context.Context, userID, id int64, delta decimal.Decimal) (*models.Bank, error) {
	return s.bank(ctx, userID, id, func(d *userData, i int) (bool, error) {
		b := &d.Banks[i]
		next := b.Balance.Add(delta)
		if delta.IsNegative() && next.IsNegative() {
			return false, models.ErrInsufficientFunds
		}
		b.Balance = next
		b.UpdatedAt = s.now()
		return true, nil
	})
}
