package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the kind of bank account.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit, AccountInvestment:
		return true
	}
	return false
}

// Bank represents a user's bank account
type Bank struct {
	ID               int64           `json:"id"`
	UserID           int64           `json:"userId"`
	Name             string          `json:"name"`
	Type             AccountType     `json:"type"`
	Balance          decimal.Decimal `json:"balance"`
	AccountNumber    string          `json:"accountNumber"`
	AccountNumberEnc string          `json:"-"` // Not serialized
	Currency         string          `json:"currency"`
	Color            string          `json:"color"`
	Icon             string          `json:"icon"`
	IsActive         bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ApplyDefaults fills optional fields left empty by the client.
func (b *Bank) ApplyDefaults() {
	if b.Type == "" {
		b.Type = AccountChecking
	}
	if b.AccountNumber == "" {
		b.AccountNumber = "****0000"
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	if b.Color == "" {
		b.Color = DefaultColor
	}
	if b.Icon == "" {
		b.Icon = "🏦"
	}
}

// Validate checks the fields required for a stored bank.
func (b *Bank) Validate() error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return Invalid("name", "is required")
	}
	if !b.Type.Valid() {
		return Invalid("type", "must be one of checking, savings, credit, investment")
	}
	if !ValidCurrency(b.Currency) {
		return Invalid("currency", "must be a 3-letter code")
	}
	return CheckMoney("balance", b.Balance)
}

// BankPatch carries a partial bank update.
type BankPatch struct {
	Name     *string          `json:"name"`
	Type     *AccountType     `json:"type"`
	Balance  *decimal.Decimal `json:"balance"`
	Currency *string          `json:"currency"`
	Color    *string          `json:"color"`
	Icon     *string          `json:"icon"`
	IsActive *bool            `json:"isActive"`
}

// Apply merges the patch into b.
func (p BankPatch) Apply(b *Bank) {
	if p.Name != nil {
		b.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.Balance != nil {
		b.Balance = *p.Balance
	}
	if p.Currency != nil {
		b.Currency = strings.ToUpper(*p.Currency)
	}
	if p.Color != nil {
		b.Color = *p.Color
	}
	if p.Icon != nil {
		b.Icon = *p.Icon
	}
	if p.IsActive != nil {
		b.IsActive = *p.IsActive
	}
}

// ValidCurrency accepts ISO-4217 shaped codes.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// SameName compares entity names the way uniqueness is enforced.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
