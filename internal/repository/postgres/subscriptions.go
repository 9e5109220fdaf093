package postgres

import (
	"context"
	"iter"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
)

const subscriptionColumns = `id, user_id, name, price, billing_cycle, next_payment, active, color, icon,
	created_at, updated_at`

func scanSubscription(s scanner) (models.Subscription, error) {
	var sub models.Subscription
	err := s.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.Price, &sub.BillingCycle, &sub.NextPayment,
		&sub.Active, &sub.Color, &sub.Icon, &sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

// CreateSubscription creates a new recurring payment
func (r *Repository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, name, price, billing_cycle, next_payment, active, color, icon,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRowContext(ctx, query, sub.UserID, sub.Name, sub.Price, sub.BillingCycle,
		sub.NextPayment, sub.Active, sub.Color, sub.Icon).
		Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return mapError("create subscription", err)
	}
	return nil
}

// FindSubscription retrieves one of the user's subscriptions
func (r *Repository) FindSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error) {
	sub, err := scanSubscription(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		return nil, mapError("find subscription", err)
	}
	return &sub, nil
}

// Subscriptions lists the user's subscriptions by next payment date.
func (r *Repository) Subscriptions(ctx context.Context, userID int64) iter.Seq2[models.Subscription, error] {
	return list(ctx, r.conn(ctx), "list subscriptions", scanSubscription,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY next_payment, id`, userID)
}

// UpdateSubscription applies patch to the locked row and stores the result.
func (r *Repository) UpdateSubscription(ctx context.Context, userID, id int64, patch models.SubscriptionPatch) (*models.Subscription, error) {
	var out models.Subscription
	err := r.RunInTx(ctx, func(ctx context.Context) error {
		sub, err := scanSubscription(r.conn(ctx).QueryRowContext(ctx,
			`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id))
		if err != nil {
			return mapError("update subscription", err)
		}
		patch.Apply(&sub)
		if err := sub.Validate(); err != nil {
			return err
		}
		query := `
			UPDATE subscriptions SET name = $3, price = $4, billing_cycle = $5, next_payment = $6, active = $7,
				color = $8, icon = $9, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1 AND id = $2
			RETURNING updated_at`
		if err := r.conn(ctx).QueryRowContext(ctx, query, userID, id, sub.Name, sub.Price, sub.BillingCycle,
			sub.NextPayment, sub.Active, sub.Color, sub.Icon).Scan(&sub.UpdatedAt); err != nil {
			return mapError("update subscription", err)
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSubscription removes a subscription and returns the removed record.
func (r *Repository) DeleteSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error) {
	sub, err := scanSubscription(r.conn(ctx).QueryRowContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = $1 AND id = $2 RETURNING `+subscriptionColumns, userID, id))
	if err != nil {
		return nil, mapError("delete subscription", err)
	}
	return &sub, nil
}

// ActiveSubscriptionsDueBefore lists active subscriptions of all users due before t.
func (r *Repository) ActiveSubscriptionsDueBefore(ctx context.Context, t time.Time) iter.Seq2[models.Subscription, error] {
	return list(ctx, r.conn(ctx), "list due subscriptions", scanSubscription,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE active AND next_payment < $1
		 ORDER BY user_id, next_payment, id`, t)
}
