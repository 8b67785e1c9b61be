package aggregate

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// Bucket is one point on the comparison axis.
type Bucket struct {
	Key     string // YYYY-MM-DD or YYYY-MM
	Label   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Series is an ordered list of buckets covering a whole period.
type Series struct {
	Period  core.Period
	Buckets []Bucket
}

// TimeSeries buckets income and expense totals across the period selected by
// (kind, year, month): one bucket per day for a month, one per month for a
// quarter or a year. Every bucket in the window is present even when empty.
func (e *Engine) TimeSeries(ctx context.Context, ownerID string, kind core.PeriodKind, year, month int) (Series, error) {
	p := core.ResolvePeriod(kind, year, month)

	groupBy := ports.ByMonth
	if p.Kind == core.MonthKind {
		groupBy = ports.ByDay
	}

	buckets, index := seedBuckets(p)
	rows, err := e.ledger.Aggregate(ctx, ports.AggregateQuery{
		OwnerID: ownerID,
		From:    p.Start,
		To:      p.End,
		GroupBy: groupBy,
	})
	if err != nil {
		return Series{}, fmt.Errorf("time series (%s): %w", p.Label, err)
	}
	for _, r := range rows {
		i, ok := index[r.Key]
		if !ok {
			continue
		}
		switch r.Kind {
		case core.Income:
			buckets[i].Income = buckets[i].Income.Add(r.Total.Decimal())
		case core.Expense:
			buckets[i].Expense = buckets[i].Expense.Add(r.Total.Decimal())
		}
	}
	return Series{Period: p, Buckets: buckets}, nil
}

// seedBuckets lists every key of the period in order, with a lookup index
// keyed the same way the store groups rows.
func seedBuckets(p core.Period) ([]Bucket, map[string]int) {
	var buckets []Bucket
	step := func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	keyFmt, labelFmt := "2006-01", "Jan 2006"
	if p.Kind == core.MonthKind {
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
		keyFmt, labelFmt = "2006-01-02", "02 Jan"
	}
	for cur := p.Start; cur.Before(p.End); cur = step(cur) {
		buckets = append(buckets, Bucket{
			Key:     cur.Format(keyFmt),
			Label:   cur.Format(labelFmt),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		})
	}
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b.Key] = i
	}
	return buckets, index
}
