package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/sirupsen/logrus"
)

// Subscriptions runs the periodic subscription jobs.
type Subscriptions struct {
	repo   repository.Repository
	log    *logrus.Logger
	mailer Mailer
}

func NewSubscriptions(repo repository.Repository, log *logrus.Logger, mailer Mailer) *Subscriptions {
	return &Subscriptions{repo: repo, log: log, mailer: mailer}
}

// AdvanceDue moves every active subscription whose payment date has passed
// forward by its billing cycle until the date is after now. No transaction is
// recorded. Returns the number of subscriptions moved.
func (s *Subscriptions) AdvanceDue(ctx context.Context, now time.Time) (int, error) {
	due, err := repository.Collect(s.repo.ActiveSubscriptionsDueBefore(ctx, now.Add(time.Nanosecond)))
	if err != nil {
		return 0, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	advanced := 0
	for _, sub := range due {
		next := sub.NextPayment
		for !next.After(now) {
			next = sub.BillingCycle.Next(next)
		}
		if _, err := s.repo.UpdateSubscription(ctx, sub.UserID, sub.ID, models.SubscriptionPatch{NextPayment: &next}); err != nil {
			return advanced, fmt.Errorf("failed to advance subscription %d: %w", sub.ID, err)
		}
		advanced++
	}
	if advanced > 0 {
		s.log.Infof("Advanced %d subscriptions", advanced)
	}
	return advanced, nil
}

// DueReminders e-mails each owner of active subscriptions charged in the
// next 24 hours. Returns the number of users notified.
func (s *Subscriptions) DueReminders(ctx context.Context, now time.Time) (int, error) {
	if s.mailer == nil {
		return 0, nil
	}
	due, err := repository.Collect(s.repo.ActiveSubscriptionsDueBefore(ctx, now.Add(24*time.Hour)))
	if err != nil {
		return 0, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	byUser := map[int64][]models.Subscription{}
	var users []int64
	for _, sub := range due {
		if !sub.NextPayment.After(now) {
			continue
		}
		if _, ok := byUser[sub.UserID]; !ok {
			users = append(users, sub.UserID)
		}
		byUser[sub.UserID] = append(byUser[sub.UserID], sub)
	}

	sent := 0
	for _, id := range users {
		user, err := s.repo.FindUserByID(ctx, id)
		if err != nil {
			return sent, fmt.Errorf("failed to load user %d: %w", id, err)
		}
		if err := s.mailer.SendSubscriptionReminder(user, byUser[id], now.Add(24*time.Hour)); err != nil {
			s.log.Errorf("Failed to send subscription reminder to %s: %v", user.Email, err)
			continue
		}
		sent++
	}
	return sent, nil
}
