package aggregate

import (
	"context"

	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// DefaultFlatTaxRate mirrors the placeholder projection the dashboard has
// always shown. It is not tax advice and carries no bracket logic.
var DefaultFlatTaxRate = decimal.RequireFromString("0.30")

// FlatRateTax projects income * Rate.
type FlatRateTax struct {
	Rate decimal.Decimal
}

func (f FlatRateTax) EstimateDue(_ context.Context, _ string, income decimal.Decimal) (decimal.Decimal, error) {
	if income.IsNegative() {
		return decimal.Zero, nil
	}
	return income.Mul(f.Rate), nil
}

// NoTax is used when no estimator is configured.
type NoTax struct{}

func (NoTax) EstimateDue(context.Context, string, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// TaxEstimatorForRate returns FlatRateTax for a positive rate and NoTax otherwise.
func TaxEstimatorForRate(rate float64) ports.TaxEstimator {
	if rate <= 0 {
		return NoTax{}
	}
	return FlatRateTax{Rate: decimal.NewFromFloat(rate)}
}
