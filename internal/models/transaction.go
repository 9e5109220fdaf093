package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TransactionType tells whether an amount adds to or draws from the user's money.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Transaction represents a financial transaction
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Location    string          `json:"location,omitempty"`
	Method      string          `json:"method,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	BankID      *int64          `json:"bankId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Validate checks the fields required to record a transaction.
func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return Invalid("type", "must be income, expense or transfer")
	}
	if !t.Amount.IsPositive() {
		return Invalid("amount", "must be greater than zero")
	}
	if err := CheckMoney("amount", t.Amount); err != nil {
		return err
	}
	t.Category = strings.TrimSpace(t.Category)
	if t.Category == "" {
		if t.Type != TypeTransfer {
			return Invalid("category", "is required")
		}
		t.Category = TransferCategory
	}
	t.Description = strings.TrimSpace(t.Description)
	if t.Description == "" {
		return Invalid("description", "is required")
	}
	if utf8.RuneCountInString(t.Description) > 200 {
		return Invalid("description", "too long (max 200 characters)")
	}
	if t.Date.IsZero() {
		return Invalid("date", "is required")
	}
	return nil
}

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	Limit    int
	Type     TransactionType
	Category string
	BankID   *int64
	From     time.Time
	To       time.Time
	Search   string
}

// Match reports whether t passes the filter. The limit is applied by the caller.
func (f TransactionFilter) Match(t *Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && !SameName(t.Category, f.Category) {
		return false
	}
	if f.BankID != nil && (t.BankID == nil || *t.BankID != *f.BankID) {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) {
			return false
		}
	}
	return true
}

// NewerFirst orders transactions for display: date descending, then id descending.
func NewerFirst(a, b *Transaction) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}
