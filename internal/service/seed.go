package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
)

type seedCategory struct {
	name   string
	budget int64
	color  string
	icon   string
}

var seedCategories = []seedCategory{
	{"Alimentación", 500, "#3B82F6", "🍽️"},
	{"Transporte", 300, "#60A5FA", "🚗"},
	{"Vivienda", 1200, "#93C5FD", "🏠"},
	{"Ocio", 200, "#BFDBFE", "🎬"},
	{"Salud", 150, "#10B981", "⚕️"},
	{"Educación", 100, "#F59E0B", "📚"},
}

// createInitialData gives a new user a starter dataset. Must run inside
// RunInTx so a failed seed also undoes the registration.
func (a *Auth) createInitialData(ctx context.Context, userID int64, now time.Time) error {
	for _, c := range seedCategories {
		category := &models.Category{
			UserID: userID,
			Name:   c.name,
			Budget: decimal.NewFromInt(c.budget),
			Color:  c.color,
			Icon:   c.icon,
		}
		if err := a.repo.CreateCategory(ctx, category); err != nil {
			return fmt.Errorf("failed to create category %s: %w", c.name, err)
		}
	}

	bank := &models.Bank{
		UserID:        userID,
		Name:          "Banco Principal",
		Type:          models.AccountChecking,
		Balance:       decimal.NewFromInt(5000),
		AccountNumber: "****1234",
		Currency:      "USD",
		Color:         models.DefaultColor,
		IsActive:      true,
	}
	bank.ApplyDefaults()
	if err := a.repo.CreateBank(ctx, bank); err != nil {
		return fmt.Errorf("failed to create bank: %w", err)
	}

	txs := []*models.Transaction{
		{
			UserID:      userID,
			Type:        models.TypeIncome,
			Amount:      decimal.NewFromInt(5000),
			Category:    "Salario",
			Description: "Salario Mensual",
			Date:        now,
			Location:    "Transferencia Bancaria",
			Method:      "Transferencia",
			BankID:      &bank.ID,
		},
		{
			UserID:      userID,
			Type:        models.TypeExpense,
			Amount:      decimal.NewFromInt(1200),
			Category:    "Vivienda",
			Description: "Alquiler",
			Date:        now,
			Location:    "Pago Bancario",
			Method:      "Débito Automático",
			BankID:      &bank.ID,
		},
	}
	for _, tx := range txs {
		if err := a.ledger.record(ctx, tx); err != nil {
			return err
		}
	}

	sub := &models.Subscription{
		UserID:       userID,
		Name:         "Netflix",
		Price:        decimal.RequireFromString("15.99"),
		BillingCycle: models.BillingMonthly,
		NextPayment:  now.Add(30 * 24 * time.Hour),
		Active:       true,
		Color:        "#E50914",
		Icon:         "🎬",
	}
	if err := a.repo.CreateSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}
