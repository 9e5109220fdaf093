package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/smartbank/internal/events"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notifier reacts to ledger events.
type Notifier struct {
	repo   repository.Repository
	log    *logrus.Logger
	mailer Mailer
}

func NewNotifier(repo repository.Repository, log *logrus.Logger, mailer Mailer) *Notifier {
	return &Notifier{repo: repo, log: log, mailer: mailer}
}

// HandleLedgerEvent sends a budget alert when an expense takes its category
// from below 90% of the budget to 90% or more. Later expenses in a category
// already past the threshold send nothing. Events for deleted users or
// categories are dropped. Store errors are returned so the delivery can be retried.
func (n *Notifier) HandleLedgerEvent(ctx context.Context, event *events.LedgerEvent) error {
	if n.mailer == nil || event.Type != events.TransactionRecorded || event.TxType != models.TypeExpense {
		return nil
	}

	category, err := n.repo.FindCategoryByName(ctx, event.UserID, event.Category)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	before := *category
	before.Spent = decimal.Max(category.Spent.Sub(event.Amount), decimal.Zero)
	if category.Usage().LessThan(warnThreshold) || !before.Usage().LessThan(warnThreshold) {
		return nil
	}

	user, err := n.repo.FindUserByID(ctx, event.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	// Send failures are logged, not retried.
	if err := n.mailer.SendBudgetAlert(user, category); err != nil {
		n.log.Errorf("Failed to send budget alert to %s: %v", user.Email, err)
		return nil
	}
	n.log.Infof("Budget alert sent to %s for %s", user.Email, category.Name)
	return nil
}
