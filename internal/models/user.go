package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user in the system
type User struct {
	ID             int64           `json:"id"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone,omitempty"`
	PasswordHash   string          `json:"-"` // Not serialized
	Currency       string          `json:"currency"`
	Language       string          `json:"language"`
	Theme          string          `json:"theme"`
	SavingsGoal    decimal.Decimal `json:"savingsGoal"`
	EmergencyFund  decimal.Decimal `json:"emergencyFund"`
	FailedAttempts int             `json:"-"`
	LockedUntil    *time.Time      `json:"-"`
	LastLogin      *time.Time      `json:"lastLogin,omitempty"`
	LastActivity   *time.Time      `json:"lastActivity,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Name returns the display name used by the original clients.
func (u *User) Name() string {
	return u.FirstName + " " + u.LastName
}

// Settings projects the user's preferences.
func (u *User) Settings() Settings {
	return Settings{
		Currency:      u.Currency,
		Language:      u.Language,
		Theme:         u.Theme,
		SavingsGoal:   u.SavingsGoal,
		EmergencyFund: u.EmergencyFund,
	}
}

// Locked reports whether a login lock is still in force at now.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// ApplyDefaults fills the preference defaults of a freshly registered user.
func (u *User) ApplyDefaults() {
	if u.Currency == "" {
		u.Currency = "USD"
	}
	if u.Language == "" {
		u.Language = "es"
	}
	if u.Theme == "" {
		u.Theme = "light"
	}
	if u.SavingsGoal.IsZero() {
		u.SavingsGoal = decimal.NewFromInt(20)
	}
	if u.EmergencyFund.IsZero() {
		u.EmergencyFund = decimal.NewFromInt(10000)
	}
}

// Settings holds the user preferences returned with the dashboard data.
type Settings struct {
	Currency      string          `json:"currency"`
	Language      string          `json:"language"`
	Theme         string          `json:"theme"`
	SavingsGoal   decimal.Decimal `json:"savingsGoal"`
	EmergencyFund decimal.Decimal `json:"emergencyFund"`
}

// SettingsPatch carries a partial preferences update.
type SettingsPatch struct {
	Currency      *string          `json:"currency"`
	Language      *string          `json:"language"`
	Theme         *string          `json:"theme"`
	SavingsGoal   *decimal.Decimal `json:"savingsGoal"`
	EmergencyFund *decimal.Decimal `json:"emergencyFund"`
}

// Apply merges the patch into u.
func (p SettingsPatch) Apply(u *User) {
	if p.Currency != nil {
		u.Currency = *p.Currency
	}
	if p.Language != nil {
		u.Language = *p.Language
	}
	if p.Theme != nil {
		u.Theme = *p.Theme
	}
	if p.SavingsGoal != nil {
		u.SavingsGoal = *p.SavingsGoal
	}
	if p.EmergencyFund != nil {
		u.EmergencyFund = *p.EmergencyFund
	}
}

// Session is the server-side record behind an issued token.
type Session struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
