package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is how often a subscription charges.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingAnnual  BillingCycle = "annual"
)

// Valid reports whether c is a known billing cycle.
func (c BillingCycle) Valid() bool {
	return c == BillingMonthly || c == BillingAnnual
}

// Next returns the payment date following t.
func (c BillingCycle) Next(t time.Time) time.Time {
	if c == BillingAnnual {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

// Subscription is a recurring payment.
type Subscription struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"userId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	BillingCycle BillingCycle    `json:"billingCycle"`
	NextPayment  time.Time       `json:"nextPayment"`
	Active       bool            `json:"active"`
	Color        string          `json:"color"`
	Icon         string          `json:"icon"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ApplyDefaults fills optional fields left empty by the client.
func (s *Subscription) ApplyDefaults() {
	if s.BillingCycle == "" {
		s.BillingCycle = BillingMonthly
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.Icon == "" {
		s.Icon = "📱"
	}
}

// Validate checks the fields required for a stored subscription.
func (s *Subscription) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Invalid("name", "is required")
	}
	if !s.Price.IsPositive() {
		return Invalid("price", "must be greater than zero")
	}
	if err := CheckMoney("price", s.Price); err != nil {
		return err
	}
	if !s.BillingCycle.Valid() {
		return Invalid("billingCycle", "must be monthly or annual")
	}
	if s.NextPayment.IsZero() {
		return Invalid("nextPayment", "is required")
	}
	return nil
}

// DaysUntil returns whole days until the next payment, rounded up.
func (s *Subscription) DaysUntil(now time.Time) int {
	d := s.NextPayment.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// SubscriptionPatch carries a partial subscription update.
type SubscriptionPatch struct {
	Name         *string          `json:"name"`
	Price        *decimal.Decimal `json:"price"`
	BillingCycle *BillingCycle    `json:"billingCycle"`
	NextPayment  *time.Time       `json:"nextPayment"`
	Active       *bool            `json:"active"`
	Color        *string          `json:"color"`
	Icon         *string          `json:"icon"`
}

// Apply merges the patch into s.
func (p SubscriptionPatch) Apply(s *Subscription) {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.BillingCycle != nil {
		s.BillingCycle = *p.BillingCycle
	}
	if p.NextPayment != nil {
		s.NextPayment = *p.NextPayment
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.Icon != nil {
		s.Icon = *p.Icon
	}
}
