// Package core provides money parsing and handling utilities.
//
// Amounts are persisted as integer cents. Aggregations convert them to
// decimal.Decimal so that ratios and percentages are computed exactly and
// rounded only when a value leaves the engine.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount in cents.
type Money struct {
	Cents int64
}

var hundred = decimal.NewFromInt(100)

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// MoneyFromDecimal rounds d half away from zero to whole cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// ParseAmount converts a decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Digits past
// the second decimal are rounded half-up. Negative values are rejected;
// zero is a valid amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234
//	ParseAmount("12,345") -> 1235
//	ParseAmount("0")      -> 0
func ParseAmount(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.HasPrefix(s, "+") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	// Guard the int64 conversion.
	if d.GreaterThan(decimal.New(1, 15)) {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d), nil
}

// Round2 rounds d to two decimal places and returns it as a float for JSON output.
func Round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
