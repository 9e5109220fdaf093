package models

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places every stored amount keeps.
const MoneyPlaces = 2

// CheckMoney rejects amounts finer than a cent, so every store keeps the
// value it was given.
func CheckMoney(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MoneyPlaces)) {
		return Invalid(field, "must have at most 2 decimal places")
	}
	return nil
}
