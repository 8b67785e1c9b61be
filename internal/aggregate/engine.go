// Package aggregate computes dashboard figures from the ledger and budget stores.
//
// The engine only reads. Every method takes the owner explicitly and scopes
// each store query to that owner and to a resolved core.Period. Values stay
// in decimal.Decimal; rounding is left to the presentation layer.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type (
	// Totals holds the income and expense sums of a period.
	Totals struct {
		Income  decimal.Decimal
		Expense decimal.Decimal
	}

	CategoryAmount struct {
		Category string
		Amount   decimal.Decimal
	}

	BudgetUsage struct {
		Budget    core.Budget
		Cap       decimal.Decimal
		Spent     decimal.Decimal
		Remaining decimal.Decimal
		UsedPct   decimal.Decimal
	}
)

// Engine joins ledger and budget data over resolved periods.
type Engine struct {
	ledger  ports.LedgerReader
	budgets ports.BudgetReader
	tax     ports.TaxEstimator
}

type Option func(*Engine)

// WithTaxEstimator replaces the default NoTax estimator.
func WithTaxEstimator(t ports.TaxEstimator) Option {
	return func(e *Engine) {
		if t != nil {
			e.tax = t
		}
	}
}

func New(ledger ports.LedgerReader, budgets ports.BudgetReader, opts ...Option) *Engine {
	e := &Engine{ledger: ledger, budgets: budgets, tax: NoTax{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TotalsByType sums income and expense over the period. A kind without
// transactions sums to zero.
func (e *Engine) TotalsByType(ctx context.Context, ownerID string, p core.Period) (Totals, error) {
	rows, err := e.ledger.Aggregate(ctx, ports.AggregateQuery{
		OwnerID: ownerID,
		From:    p.Start,
		To:      p.End,
		GroupBy: ports.ByKind,
	})
	if err != nil {
		return Totals{}, fmt.Errorf("totals by type (%s): %w", p.Label, err)
	}
	t := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, r := range rows {
		switch r.Kind {
		case core.Income:
			t.Income = t.Income.Add(r.Total.Decimal())
		case core.Expense:
			t.Expense = t.Expense.Add(r.Total.Decimal())
		}
	}
	return t, nil
}

// PercentChange returns (current-previous)/previous*100, or zero when there
// is no previous value to compare against.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}

// SavingsRate returns (income-expense)/income*100, zero when income is zero.
func SavingsRate(t Totals) decimal.Decimal {
	if t.Income.IsZero() {
		return decimal.Zero
	}
	return t.Income.Sub(t.Expense).Div(t.Income).Mul(hundred)
}

// CategoryBreakdown returns expense totals per category, largest first.
// Equal amounts are ordered by category name.
func (e *Engine) CategoryBreakdown(ctx context.Context, ownerID string, p core.Period) ([]CategoryAmount, error) {
	spent, err := e.expenseByCategory(ctx, ownerID, p)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryAmount, 0, len(spent))
	for cat, amt := range spent {
		out = append(out, CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// BudgetUtilization compares each budget of the period's month against the
// expenses of its category. Only month periods are meaningful.
func (e *Engine) BudgetUtilization(ctx context.Context, ownerID string, p core.Period) ([]BudgetUsage, error) {
	if p.Kind != core.MonthKind {
		return nil, core.Invalid("period", "budget utilization needs a month period, got %s", p.Kind)
	}
	budgets, err := e.budgets.BudgetsForMonth(ctx, ownerID, p.MonthKey())
	if err != nil {
		return nil, fmt.Errorf("budgets for %s: %w", p.MonthKey(), err)
	}
	if len(budgets) == 0 {
		return []BudgetUsage{}, nil
	}
	spent, err := e.expenseByCategory(ctx, ownerID, p)
	if err != nil {
		return nil, err
	}

	out := make([]BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		capAmt := b.Amount.Decimal()
		s, ok := spent[b.Category]
		if !ok {
			s = decimal.Zero
		}
		out = append(out, BudgetUsage{
			Budget:    b,
			Cap:       capAmt,
			Spent:     s,
			Remaining: decimal.Max(decimal.Zero, capAmt.Sub(s)),
			UsedPct:   usedPct(s, capAmt),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Budget.Category < out[j].Budget.Category })
	return out, nil
}

// usedPct is spent/cap*100 clamped to [0, 100]; a zero cap reads as 0%.
func usedPct(spent, capAmt decimal.Decimal) decimal.Decimal {
	if capAmt.IsZero() {
		return decimal.Zero
	}
	pct := spent.Div(capAmt).Mul(hundred)
	return decimal.Min(hundred, decimal.Max(decimal.Zero, pct))
}

// EstimatedTaxDue is an approximation from the configured estimator, not the
// authoritative tax calculation.
func (e *Engine) EstimatedTaxDue(ctx context.Context, ownerID string, income decimal.Decimal) (decimal.Decimal, error) {
	return e.tax.EstimateDue(ctx, ownerID, income)
}

func (e *Engine) expenseByCategory(ctx context.Context, ownerID string, p core.Period) (map[string]decimal.Decimal, error) {
	rows, err := e.ledger.Aggregate(ctx, ports.AggregateQuery{
		OwnerID: ownerID,
		From:    p.Start,
		To:      p.End,
		Kind:    core.Expense,
		GroupBy: ports.ByCategory,
	})
	if err != nil {
		return nil, fmt.Errorf("expenses by category (%s): %w", p.Label, err)
	}
	out := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		if cur, ok := out[r.Key]; ok {
			out[r.Key] = cur.Add(r.Total.Decimal())
			continue
		}
		out[r.Key] = r.Total.Decimal()
	}
	return out, nil
}
