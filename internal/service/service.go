package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/smartbank/internal/config"
	"github.com/Dan9191/smartbank/internal/events"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Mailer sends user notifications.
type Mailer interface {
	SendBudgetAlert(user *models.User, category *models.Category) error
	SendSubscriptionReminder(user *models.User, subs []models.Subscription, day time.Time) error
}

// RateProvider returns an annual interest rate in percent.
type RateProvider interface {
	AnnualRate(ctx context.Context) (decimal.Decimal, error)
	Source() string
}

// Options carries the optional collaborators of the services. Nil fields
// get safe defaults.
type Options struct {
	Publisher events.Publisher
	Rates     RateProvider
	Mailer    Mailer
	Clock     func() time.Time
	// HashCost overrides the bcrypt cost.
	HashCost int
}

// Service handles business logic
type Service struct {
	Auth          *Auth
	Ledger        *Ledger
	Catalog       *Catalog
	Dashboard     *Dashboard
	Subscriptions *Subscriptions
	Forecast      *Forecast
	Notifier      *Notifier
}

// NewService wires every component over repo
func NewService(repo repository.Repository, log *logrus.Logger, cfg *config.Config, opts Options) (*Service, error) {
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption key: %w", err)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}

	ledger := NewLedger(repo, log, opts.Publisher, opts.Clock)
	return &Service{
		Auth: NewAuth(repo, log, ledger, AuthConfig{
			Secret:      []byte(cfg.JWTSecret),
			SessionTTL:  cfg.SessionTTL,
			IdleTimeout: cfg.IdleTimeout,
			HashCost:    opts.HashCost,
		}, opts.Clock),
		Ledger:        ledger,
		Catalog:       NewCatalog(repo, log, key),
		Dashboard:     NewDashboard(repo, opts.Clock),
		Subscriptions: NewSubscriptions(repo, log, opts.Mailer),
		Forecast:      NewForecast(repo, log, opts.Rates, decimal.NewFromFloat(cfg.DefaultRate), opts.Clock),
		Notifier:      NewNotifier(repo, log, opts.Mailer),
	}, nil
}
