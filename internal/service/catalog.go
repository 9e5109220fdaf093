package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/Dan9191/smartbank/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Catalog manages banks, categories, subscriptions and user settings.
type Catalog struct {
	repo repository.Repository
	log  *logrus.Logger
	key  []byte
}

func NewCatalog(repo repository.Repository, log *logrus.Logger, encryptionKey []byte) *Catalog {
	return &Catalog{repo: repo, log: log, key: encryptionKey}
}

// BankInput is the bank creation form.
type BankInput struct {
	Name          string             `json:"name"`
	Type          models.AccountType `json:"type"`
	Balance       decimal.Decimal    `json:"balance"`
	AccountNumber string             `json:"accountNumber"`
	Currency      string             `json:"currency"`
	Color         string             `json:"color"`
	Icon          string             `json:"icon"`
	IsActive      *bool              `json:"isActive"`
}

// CreateBank adds a bank account. Full account numbers are masked and kept
// encrypted.
func (c *Catalog) CreateBank(ctx context.Context, userID int64, in BankInput) (*models.Bank, error) {
	bank := &models.Bank{
		UserID:   userID,
		Name:     in.Name,
		Type:     in.Type,
		Balance:  in.Balance,
		Currency: strings.ToUpper(strings.TrimSpace(in.Currency)),
		Color:    in.Color,
		Icon:     in.Icon,
		IsActive: in.IsActive == nil || *in.IsActive,
	}
	bank.ApplyDefaults()
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	if bank.Balance.IsNegative() {
		return nil, models.Invalid("balance", "must not be negative")
	}

	masked, sealed, err := utils.SealAccountNumber(in.AccountNumber, c.key)
	if err != nil {
		return nil, err
	}
	bank.AccountNumber = masked
	bank.AccountNumberEnc = sealed

	if err := c.repo.CreateBank(ctx, bank); err != nil {
		return nil, fmt.Errorf("failed to create bank: %w", err)
	}
	c.log.Infof("Bank %d created for user %d", bank.ID, userID)
	return bank, nil
}

// UpdateBank edits a bank account.
func (c *Catalog) UpdateBank(ctx context.Context, userID, id int64, patch models.BankPatch) (*models.Bank, error) {
	if patch.Balance != nil && patch.Balance.IsNegative() {
		return nil, models.Invalid("balance", "must not be negative")
	}
	bank, err := c.repo.UpdateBank(ctx, userID, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update bank: %w", err)
	}
	return bank, nil
}

func (c *Catalog) DeleteBank(ctx context.Context, userID, id int64) (*models.Bank, error) {
	bank, err := c.repo.DeleteBank(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete bank: %w", err)
	}
	c.log.Infof("Bank %d deleted for user %d", id, userID)
	return bank, nil
}

func (c *Catalog) Banks(ctx context.Context, userID int64) ([]models.Bank, error) {
	return repository.Collect(c.repo.Banks(ctx, userID))
}

// BankHistory lists the transactions made against a bank, newest first.
func (c *Catalog) BankHistory(ctx context.Context, userID, bankID int64) ([]models.Transaction, error) {
	if _, err := c.repo.FindBank(ctx, userID, bankID); err != nil {
		return nil, fmt.Errorf("failed to find bank: %w", err)
	}
	return repository.Collect(c.repo.Transactions(ctx, userID, models.TransactionFilter{BankID: &bankID}))
}

// RevealAccountNumber decrypts the stored full account number, falling back
// to the masked one when none was kept.
func (c *Catalog) RevealAccountNumber(ctx context.Context, userID, bankID int64) (string, error) {
	bank, err := c.repo.FindBank(ctx, userID, bankID)
	if err != nil {
		return "", fmt.Errorf("failed to find bank: %w", err)
	}
	if bank.AccountNumberEnc == "" {
		return bank.AccountNumber, nil
	}
	return utils.Decrypt(bank.AccountNumberEnc, c.key)
}

// CreateCategory adds a budget category with nothing spent.
func (c *Catalog) CreateCategory(ctx context.Context, userID int64, category *models.Category) (*models.Category, error) {
	category.UserID = userID
	category.Spent = decimal.Zero
	category.ApplyDefaults()
	if err := category.Validate(); err != nil {
		return nil, err
	}
	if err := c.repo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	c.log.Infof("Category %q created for user %d", category.Name, userID)
	return category, nil
}

func (c *Catalog) Categories(ctx context.Context, userID int64) ([]models.Category, error) {
	return repository.Collect(c.repo.Categories(ctx, userID))
}

// SubscriptionInput is the subscription creation form.
type SubscriptionInput struct {
	models.Subscription
	Active *bool `json:"active"`
}

func (c *Catalog) CreateSubscription(ctx context.Context, userID int64, in SubscriptionInput) (*models.Subscription, error) {
	sub := in.Subscription
	sub.UserID = userID
	sub.Active = in.Active == nil || *in.Active
	sub.ApplyDefaults()
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := c.repo.CreateSubscription(ctx, &sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	c.log.Infof("Subscription %q created for user %d", sub.Name, userID)
	return &sub, nil
}

func (c *Catalog) UpdateSubscription(ctx context.Context, userID, id int64, patch models.SubscriptionPatch) (*models.Subscription, error) {
	sub, err := c.repo.UpdateSubscription(ctx, userID, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	return sub, nil
}

// ToggleSubscription flips the active flag.
func (c *Catalog) ToggleSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error) {
	var out *models.Subscription
	err := c.repo.RunInTx(ctx, func(ctx context.Context) error {
		sub, err := c.repo.FindSubscription(ctx, userID, id)
		if err != nil {
			return err
		}
		active := !sub.Active
		out, err = c.repo.UpdateSubscription(ctx, userID, id, models.SubscriptionPatch{Active: &active})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle subscription: %w", err)
	}
	return out, nil
}

func (c *Catalog) DeleteSubscription(ctx context.Context, userID, id int64) (*models.Subscription, error) {
	sub, err := c.repo.DeleteSubscription(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete subscription: %w", err)
	}
	return sub, nil
}

func (c *Catalog) Subscriptions(ctx context.Context, userID int64) ([]models.Subscription, error) {
	return repository.Collect(c.repo.Subscriptions(ctx, userID))
}

// Transactions streams the user's transactions matching filter, newest first.
// Transaction returns one of the user's transactions.
func (c *Catalog) Transaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	tx, err := c.repo.FindTransaction(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return tx, nil
}

func (c *Catalog) Transactions(ctx context.Context, userID int64, filter models.TransactionFilter) iter.Seq2[models.Transaction, error] {
	return c.repo.Transactions(ctx, userID, filter)
}

func validateSettings(p *models.SettingsPatch) error {
	if p.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*p.Currency))
		if !models.ValidCurrency(code) {
			return models.Invalid("currency", "must be a 3-letter code")
		}
		p.Currency = &code
	}
	if p.Language != nil && *p.Language != "es" && *p.Language != "en" {
		return models.Invalid("language", "must be es or en")
	}
	if p.Theme != nil && *p.Theme != "light" && *p.Theme != "dark" {
		return models.Invalid("theme", "must be light or dark")
	}
	if p.SavingsGoal != nil && (p.SavingsGoal.IsNegative() || p.SavingsGoal.GreaterThan(decimal.NewFromInt(100))) {
		return models.Invalid("savingsGoal", "must be between 0 and 100")
	}
	if p.EmergencyFund != nil && p.EmergencyFund.IsNegative() {
		return models.Invalid("emergencyFund", "must not be negative")
	}
	if p.EmergencyFund != nil {
		if err := models.CheckMoney("emergencyFund", *p.EmergencyFund); err != nil {
			return err
		}
	}
	if p.SavingsGoal != nil {
		if err := models.CheckMoney("savingsGoal", *p.SavingsGoal); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSettings stores the user's preferences.
func (c *Catalog) UpdateSettings(ctx context.Context, userID int64, patch models.SettingsPatch) (*models.Settings, error) {
	if err := validateSettings(&patch); err != nil {
		return nil, err
	}
	var settings models.Settings
	err := c.repo.RunInTx(ctx, func(ctx context.Context) error {
		user, err := c.repo.FindUserByID(ctx, userID)
		if err != nil {
			return err
		}
		patch.Apply(user)
		if err := c.repo.UpdateUser(ctx, user); err != nil {
			return err
		}
		settings = user.Settings()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return &settings, nil
}
