package service

import (
	"context"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	MaxForecastMonths = 120

	rateSourceDefault = "default"
	rateSourceNone    = "none"
)

// Forecast projects bank balances forward.
type Forecast struct {
	repo        repository.Repository
	log         *logrus.Logger
	rates       RateProvider
	defaultRate decimal.Decimal
	now         func() time.Time
}

func NewForecast(repo repository.Repository, log *logrus.Logger, rates RateProvider, defaultRate decimal.Decimal, now func() time.Time) *Forecast {
	return &Forecast{repo: repo, log: log, rates: rates, defaultRate: defaultRate, now: now}
}

// Forecast projects the balance of bankID for months month-ends. Savings and
// investment accounts compound monthly; other types stay flat.
func (f *Forecast) Forecast(ctx context.Context, userID, bankID int64, months int) (*models.BalanceForecast, error) {
	if months < 1 || months > MaxForecastMonths {
		return nil, models.Invalid("months", "must be between 1 and 120")
	}
	bank, err := f.repo.FindBank(ctx, userID, bankID)
	if err != nil {
		return nil, err
	}

	rate, source := decimal.Zero, rateSourceNone
	if bank.Type == models.AccountSavings || bank.Type == models.AccountInvestment {
		rate, source = f.annualRate(ctx)
	}

	monthly := rate.Div(hundred).Div(twelve)
	factor := decimal.NewFromInt(1).Add(monthly)
	start := f.now()
	balance := bank.Balance

	forecast := &models.BalanceForecast{
		BankID:         bank.ID,
		InitialBalance: bank.Balance,
		AnnualRate:     rate,
		RateSource:     source,
		Months:         months,
		Monthly:        make([]models.MonthlyBalance, 0, months),
	}
	for i := 1; i <= months; i++ {
		balance = balance.Mul(factor)
		forecast.Monthly = append(forecast.Monthly, models.MonthlyBalance{
			Date:    start.AddDate(0, i, 0).Format("2006-01-02"),
			Balance: balance.Round(2),
		})
	}
	return forecast, nil
}

func (f *Forecast) annualRate(ctx context.Context) (decimal.Decimal, string) {
	if f.rates == nil {
		return f.defaultRate, rateSourceDefault
	}
	rate, err := f.rates.AnnualRate(ctx)
	if err != nil {
		f.log.Warnf("Rate provider %s failed, using default rate: %v", f.rates.Source(), err)
		return f.defaultRate, rateSourceDefault
	}
	return rate, f.rates.Source()
}
