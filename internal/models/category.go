package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultColor is used for entities created without a color and for
	// transactions whose category no longer exists.
	DefaultColor = "#3B82F6"
	// FallbackCategoryIcon renders orphaned category references.
	FallbackCategoryIcon = "💰"
	// TransferCategory tags synthetic transfer transactions.
	TransferCategory = "Transferencia"
)

// Category is a named budget bucket with an allocated limit and accumulated spend.
type Category struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Name      string          `json:"name"`
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Color     string          `json:"color"`
	Icon      string          `json:"icon"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ApplyDefaults fills optional fields left empty by the client.
func (c *Category) ApplyDefaults() {
	if c.Color == "" {
		c.Color = DefaultColor
	}
	if c.Icon == "" {
		c.Icon = FallbackCategoryIcon
	}
}

// Validate checks the fields required for a stored category.
func (c *Category) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Invalid("name", "is required")
	}
	if c.Budget.IsNegative() {
		return Invalid("budget", "must not be negative")
	}
	return CheckMoney("budget", c.Budget)
}

// Usage returns spent as a percentage of budget, zero when there is no budget.
func (c *Category) Usage() decimal.Decimal {
	if !c.Budget.IsPositive() {
		return decimal.Zero
	}
	return c.Spent.Div(c.Budget).Mul(decimal.NewFromInt(100))
}

// Remaining returns budget minus spent; negative when over budget.
func (c *Category) Remaining() decimal.Decimal {
	return c.Budget.Sub(c.Spent)
}

// CategoryPatch carries a partial category update. Spent is not patchable;
// it is owned by the ledger.
type CategoryPatch struct {
	Name   *string          `json:"name"`
	Budget *decimal.Decimal `json:"budget"`
	Color  *string          `json:"color"`
	Icon   *string          `json:"icon"`
}

// Apply merges the patch into c.
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Budget != nil {
		c.Budget = *p.Budget
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
}
