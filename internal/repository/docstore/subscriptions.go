package docstore

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
)

func bySchedule(a, b models.Subscription) int {
	if c := a.NextPayment.Compare(b.NextPayment); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return s.do(ctx, func(t *txn) error {
		d, err := t.userData(sub.UserID)
		if err != nil {
			return err
		}
		if indexOf(d.Subscriptions, func(o models.Subscription) bool { return models.SameName(o.Name, sub.Name) }) >= 0 {
			return duplicateName("subscription", sub.Name)
		}
		now := s.now()
		sub.ID = s.nextID()
		sub.CreatedAt = now
		sub.UpdatedAt = now
		d.Subscriptions = append(d.Subscriptions, *sub)
		t.touch(sub.UserID)
		return nil
	})
}

func (s *Store) subscription(ctx context.Context, userID, id int64, fn func(d *userData, i int) error) (*models.Subscription, error) {
	var out models.Subscription
	err := s.do(ctx, func(t *txn) error {
		d, err := t.userData(userID)
		if err != nil {
			return err
		}
		i := indexOf(d.Subscriptions, func(o models.Subscription) bool { return o.ID == id })
		if i < 0 {
			return notFound("subscription", id)
		}
		out = d.Subscriptions[i]
		if fn == nil {
			return nil
		}
		if err := fn(d, i); err != nil {
			return err
		}
		if i < len(d.Subscriptions) && d.Subscriptions[i].ID == id {
			out = d.Subscriptions[i]
		}
		t.touch(userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error) {
	return s.subscription(ctx, userID, id, nil)
}

func (s *Store) Subscriptions(ctx context.Context, userID int64) iter.Seq2[models.Subscription, error] {
	return seq(s, ctx, func(t *txn) ([]models.Subscription, error) {
		d, err := t.userData(userID)
		if err != nil {
			return nil, err
		}
		out := slices.Clone(d.Subscriptions)
		slices.SortFunc(out, bySchedule)
		return out, nil
	})
}

func (s *Store) UpdateSubscription(ctx context.Context, userID, id int64, patch models.SubscriptionPatch) (*models.Subscription, error) {
	return s.subscription(ctx, userID, id, func(d *userData, i int) error {
		sub := d.Subscriptions[i]
		patch.Apply(&sub)
		if err := sub.Validate(); err != nil {
			return err
		}
		if indexOf(d.Subscriptions, func(o models.Subscription) bool { return o.ID != id && models.SameName(o.Name, sub.Name) }) >= 0 {
			return duplicateName("subscription", sub.Name)
		}
		sub.UpdatedAt = s.now()
		d.Subscriptions[i] = sub
		return nil
	})
}

func (s *Store) DeleteSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error) {
	return s.subscription(ctx, userID, id, func(d *userData, i int) error {
		d.Subscriptions = append(d.Subscriptions[:i], d.Subscriptions[i+1:]...)
		return nil
	})
}

func (s *Store) ActiveSubscriptionsDueBefore(ctx context.Context, before time.Time) iter.Seq2[models.Subscription, error] {
	return seq(s, ctx, func(t *txn) ([]models.Subscription, error) {
		users, err := t.users()
		if err != nil {
			return nil, err
		}
		var out []models.Subscription
		for _, u := range users {
			d, err := t.userData(u.ID)
			if err != nil {
				return nil, err
			}
			var due []models.Subscription
			for _, sub := range d.Subscriptions {
				if sub.Active && sub.NextPayment.Before(before) {
					due = append(due, sub)
				}
			}
			slices.SortFunc(due, bySchedule)
			out = append(out, due...)
		}
		return out, nil
	})
}
