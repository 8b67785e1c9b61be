package ports

import (
	"context"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// GroupBy selects the grouping key of an aggregate query.
type GroupBy string

const (
	ByKind     GroupBy = "kind"
	ByCategory GroupBy = "category"
	ByDay      GroupBy = "day"   // key "YYYY-MM-DD"
	ByMonth    GroupBy = "month" // key "YYYY-MM"
)

// MaxRecent bounds every recent-activity query.
const MaxRecent = 100

type (
	// AggregateQuery sums transaction amounts for one owner over [From, To).
	AggregateQuery struct {
		OwnerID string
		From    time.Time
		To      time.Time
		Kind    core.Kind // empty matches both kinds
		GroupBy GroupBy
	}

	// AggregateRow is one group of an aggregate result. Key is the category,
	// day or month key; it is empty when grouping by kind.
	AggregateRow struct {
		Key   string
		Kind  core.Kind
		Total core.Money
	}

	// RecentQuery lists transactions newest first. From and To are inclusive
	// and optional.
	RecentQuery struct {
		OwnerID string
		From    time.Time
		To      time.Time
		Limit   int
	}
)

// Ports for the stores the aggregation engine reads from.
type (
	LedgerReader interface {
		Aggregate(ctx context.Context, q AggregateQuery) ([]AggregateRow, error)
		Recent(ctx context.Context, q RecentQuery) ([]core.Transaction, error)
	}

	BudgetReader interface {
		// BudgetsForMonth returns the budgets of owner for a "YYYY-MM" month.
		BudgetsForMonth(ctx context.Context, ownerID, month string) ([]core.Budget, error)
	}

	LedgerWriter interface {
		RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, id string) error
	}

	BudgetWriter interface {
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, ownerID, id string) error
	}

	// Pinger is implemented by stores that can report readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// TaxEstimator projects the tax due on an income figure.
	TaxEstimator interface {
		EstimateDue(ctx context.Context, ownerID string, income decimal.Decimal) (decimal.Decimal, error)
	}
)

// ClampLimit bounds a recent-activity limit to [1, MaxRecent], using def for
// non-positive values.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	if limit > MaxRecent {
		limit = MaxRecent
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}
