package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserData is the aggregate returned by the data-fetch endpoint and the JSON export
type UserData struct {
	Transactions  []Transaction  `json:"transactions"`
	Categories    []Category     `json:"categories"`
	Subscriptions []Subscription `json:"subscriptions"`
	Banks         []Bank         `json:"banks"`
	Settings      Settings       `json:"settings"`
}

// Summary represents the dashboard figures for a period
type Summary struct {
	Period             string             `json:"period"`
	From               time.Time          `json:"from"`
	Income             decimal.Decimal    `json:"income"`
	Expenses           decimal.Decimal    `json:"expenses"`
	TransactionBalance decimal.Decimal    `json:"transactionBalance"`
	BanksBalance       decimal.Decimal    `json:"banksBalance"`
	TotalBalance       decimal.Decimal    `json:"totalBalance"`
	SavingsRate        decimal.Decimal    `json:"savingsRate"` // TotalBalance / Income * 100
	ExpensesByCategory []CategoryAmount   `json:"expensesByCategory"`
	BudgetAlerts       []BudgetAlert      `json:"budgetAlerts"`
	Subscriptions      SubscriptionTotals `json:"subscriptions"`
	DueTomorrow        []Subscription     `json:"dueTomorrow"`
}

// CategoryAmount is an expense total for one category name
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Color    string          `json:"color"`
	Icon     string          `json:"icon"`
	Orphaned bool            `json:"orphaned,omitempty"`
}

// AlertLevel grades a budget alert.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertExceeded AlertLevel = "exceeded"
)

// BudgetAlert flags a category at or above 90% of its budget
type BudgetAlert struct {
	Category string          `json:"category"`
	Usage    decimal.Decimal `json:"usage"`
	Level    AlertLevel      `json:"level"`
}

// SubscriptionTotals summarizes active subscriptions
type SubscriptionTotals struct {
	Total        int             `json:"total"`
	Active       int             `json:"active"`
	MonthlyTotal decimal.Decimal `json:"monthlyTotal"`
	AnnualTotal  decimal.Decimal `json:"annualTotal"`
}

// BalanceForecast represents balance forecast for N months
type BalanceForecast struct {
	BankID         int64            `json:"bankId"`
	InitialBalance decimal.Decimal  `json:"initialBalance"`
	AnnualRate     decimal.Decimal  `json:"annualRate"` // percent
	RateSource     string           `json:"rateSource"`
	Months         int              `json:"months"`
	Monthly        []MonthlyBalance `json:"monthly"`
}

// MonthlyBalance represents the projected balance at the end of a month
type MonthlyBalance struct {
	Date    string          `json:"date"` // Format: YYYY-MM-DD
	Balance decimal.Decimal `json:"balance"`
}
