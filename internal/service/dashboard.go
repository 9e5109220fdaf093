package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// UserDataLimit caps the transactions returned with the dashboard data.
const UserDataLimit = 100

var (
	hundred       = decimal.NewFromInt(100)
	twelve        = decimal.NewFromInt(12)
	warnThreshold = decimal.NewFromInt(90)
)

// Dashboard computes the read-only views of a user's finances.
type Dashboard struct {
	repo repository.Repository
	now  func() time.Time
}

func NewDashboard(repo repository.Repository, now func() time.Time) *Dashboard {
	return &Dashboard{repo: repo, now: now}
}

// UserData loads everything the client needs in one call.
func (d *Dashboard) UserData(ctx context.Context, userID int64) (*models.UserData, error) {
	return d.load(ctx, userID, models.TransactionFilter{Limit: UserDataLimit})
}

// Export loads the same aggregate with every transaction.
func (d *Dashboard) Export(ctx context.Context, userID int64) (*models.UserData, error) {
	return d.load(ctx, userID, models.TransactionFilter{})
}

func (d *Dashboard) load(ctx context.Context, userID int64, filter models.TransactionFilter) (*models.UserData, error) {
	data := &models.UserData{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := d.repo.FindUserByID(ctx, userID)
		if err != nil {
			return err
		}
		data.Settings = user.Settings()
		return nil
	})
	g.Go(func() (err error) {
		data.Transactions, err = repository.Collect(d.repo.Transactions(ctx, userID, filter))
		return err
	})
	g.Go(func() (err error) {
		data.Categories, err = repository.Collect(d.repo.Categories(ctx, userID))
		return err
	})
	g.Go(func() (err error) {
		data.Subscriptions, err = repository.Collect(d.repo.Subscriptions(ctx, userID))
		return err
	})
	g.Go(func() (err error) {
		data.Banks, err = repository.Collect(d.repo.Banks(ctx, userID))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load user data: %w", err)
	}
	return data, nil
}

// PeriodStart returns the beginning of the named reporting window ending at
// now. An empty period means month.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "", "month":
		return now.AddDate(0, -1, 0), nil
	case "quarter":
		return now.AddDate(0, -3, 0), nil
	case "year":
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, models.Invalid("period", "must be week, month, quarter or year")
}

// Summary computes the dashboard figures for period.
func (d *Dashboard) Summary(ctx context.Context, userID int64, period string) (*models.Summary, error) {
	now := d.now()
	from, err := PeriodStart(period, now)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = "month"
	}

	data, err := d.load(ctx, userID, models.TransactionFilter{From: from})
	if err != nil {
		return nil, err
	}

	s := &models.Summary{
		Period:             period,
		From:               from,
		Income:             decimal.Zero,
		Expenses:           decimal.Zero,
		BanksBalance:       decimal.Zero,
		SavingsRate:        decimal.Zero,
		ExpensesByCategory: []models.CategoryAmount{},
		BudgetAlerts:       []models.BudgetAlert{},
		DueTomorrow:        []models.Subscription{},
	}
	for _, tx := range data.Transactions {
		switch tx.Type {
		case models.TypeIncome:
			s.Income = s.Income.Add(tx.Amount)
		case models.TypeExpense:
			s.Expenses = s.Expenses.Add(tx.Amount)
		}
	}
	s.TransactionBalance = s.Income.Sub(s.Expenses)
	for _, b := range data.Banks {
		if b.IsActive {
			s.BanksBalance = s.BanksBalance.Add(b.Balance)
		}
	}
	s.TotalBalance = s.TransactionBalance.Add(s.BanksBalance)
	if s.Income.IsPositive() {
		s.SavingsRate = s.TotalBalance.Div(s.Income).Mul(hundred).Round(1)
	}

	s.ExpensesByCategory = expensesByCategory(data.Transactions, data.Categories)
	s.BudgetAlerts = budgetAlerts(data.Categories)
	s.Subscriptions = subscriptionTotals(data.Subscriptions)
	for _, sub := range data.Subscriptions {
		if sub.Active && sub.DaysUntil(now) == 1 {
			s.DueTomorrow = append(s.DueTomorrow, sub)
		}
	}
	return s, nil
}

// expensesByCategory totals expenses per category name, largest first.
// Names without a category get the fallback look.
func expensesByCategory(txs []models.Transaction, categories []models.Category) []models.CategoryAmount {
	byKey := map[string]*models.CategoryAmount{}
	var order []string
	for _, tx := range txs {
		if tx.Type != models.TypeExpense {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(tx.Category))
		entry, ok := byKey[key]
		if !ok {
			entry = &models.CategoryAmount{
				Category: tx.Category,
				Amount:   decimal.Zero,
				Color:    models.DefaultColor,
				Icon:     models.FallbackCategoryIcon,
				Orphaned: true,
			}
			if i := slices.IndexFunc(categories, func(c models.Category) bool { return models.SameName(c.Name, tx.Category) }); i >= 0 {
				entry.Category = categories[i].Name
				entry.Color = categories[i].Color
				entry.Icon = categories[i].Icon
				entry.Orphaned = false
			}
			byKey[key] = entry
			order = append(order, key)
		}
		entry.Amount = entry.Amount.Add(tx.Amount)
	}

	out := make([]models.CategoryAmount, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	slices.SortStableFunc(out, func(a, b models.CategoryAmount) int {
		return b.Amount.Cmp(a.Amount)
	})
	return out
}

// budgetAlerts flags categories at 90% of their budget or more.
func budgetAlerts(categories []models.Category) []models.BudgetAlert {
	alerts := []models.BudgetAlert{}
	for _, c := range categories {
		usage := c.Usage()
		if usage.LessThan(warnThreshold) {
			continue
		}
		level := models.AlertWarning
		if usage.GreaterThanOrEqual(hundred) {
			level = models.AlertExceeded
		}
		alerts = append(alerts, models.BudgetAlert{Category: c.Name, Usage: usage.Round(1), Level: level})
	}
	slices.SortStableFunc(alerts, func(a, b models.BudgetAlert) int {
		return cmp.Compare(b.Usage.InexactFloat64(), a.Usage.InexactFloat64())
	})
	return alerts
}

func subscriptionTotals(subs []models.Subscription) models.SubscriptionTotals {
	t := models.SubscriptionTotals{Total: len(subs), MonthlyTotal: decimal.Zero, AnnualTotal: decimal.Zero}
	for _, s := range subs {
		if !s.Active {
			continue
		}
		t.Active++
		if s.BillingCycle == models.BillingAnnual {
			t.MonthlyTotal = t.MonthlyTotal.Add(s.Price.Div(twelve))
			t.AnnualTotal = t.AnnualTotal.Add(s.Price)
		} else {
			t.MonthlyTotal = t.MonthlyTotal.Add(s.Price)
			t.AnnualTotal = t.AnnualTotal.Add(s.Price.Mul(twelve))
		}
	}
	t.MonthlyTotal = t.MonthlyTotal.Round(2)
	t.AnnualTotal = t.AnnualTotal.Round(2)
	return t
}
