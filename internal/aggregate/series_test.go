package aggregate

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func TestTimeSeriesMonthHasOneBucketPerDay(t *testing.T) {
	s := newStore(t,
		core.Transaction{OwnerID: "u1", Kind: core.Income, Amount: cents(10000), Category: "Salary", OccurredAt: at(2025, 9, 2)},
		core.Transaction{OwnerID: "u1", Kind: core.Expense, Amount: cents(2550), Category: "Food", OccurredAt: at(2025, 9, 2)},
		core.Transaction{OwnerID: "u1", Kind: core.Expense, Amount: cents(100), Category: "Food", OccurredAt: at(2025, 9, 30)},
	)
	got, err := New(s, s).TimeSeries(context.Background(), "u1", core.MonthKind, 2025, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Buckets) != 30 {
		t.Fatalf("want 30 buckets, got %d", len(got.Buckets))
	}
	if b := got.Buckets[1]; b.Label != "02 Sep" || !b.Income.Equal(dec("100")) || !b.Expense.Equal(dec("25.5")) {
		t.Errorf("bucket[1] = %+v", b)
	}
	if b := got.Buckets[29]; b.Key != "2025-09-30" || !b.Expense.Equal(dec("1")) {
		t.Errorf("bucket[29] = %+v", b)
	}
	for i, b := range got.Buckets {
		if i == 1 || i == 29 {
			continue
		}
		if !b.Income.IsZero() || !b.Expense.IsZero() {
			t.Errorf("bucket %s should be empty", b.Key)
		}
	}
}

func TestTimeSeriesEmptyMonthIsAllZero(t *testing.T) {
	s := newStore(t)
	got, err := New(s, s).TimeSeries(context.Background(), "u1", core.MonthKind, 2024, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Buckets) != 29 {
		t.Fatalf("leap February should have 29 buckets, got %d", len(got.Buckets))
	}
	for _, b := range got.Buckets {
		if !b.Income.IsZero() || !b.Expense.IsZero() {
			t.Fatalf("bucket %s not zero", b.Key)
		}
	}
}

func TestTimeSeriesQuarterAndYear(t *testing.T) {
	s := newStore(t,
		core.Transaction{OwnerID: "u1", Kind: core.Expense, Amount: cents(1000), Category: "Food", OccurredAt: at(2025, 11, 15)},
		core.Transaction{OwnerID: "u1", Kind: core.Expense, Amount: cents(1000), Category: "Food", OccurredAt: at(2025, 11, 16)},
	)
	e := New(s, s)

	q, err := e.TimeSeries(context.Background(), "u1", core.QuarterKind, 2025, 11)
	if err != nil {
		t.Fatal(err)
	}
	labels := []string{"Oct 2025", "Nov 2025", "Dec 2025"}
	if len(q.Buckets) != len(labels) {
		t.Fatalf("quarter buckets = %d", len(q.Buckets))
	}
	for i, l := range labels {
		if q.Buckets[i].Label != l {
			t.Errorf("label %d = %q, want %q", i, q.Buckets[i].Label, l)
		}
	}
	if !q.Buckets[1].Expense.Equal(dec("20")) {
		t.Errorf("november expense = %s", q.Buckets[1].Expense)
	}

	y, err := e.TimeSeries(context.Background(), "u1", core.YearKind, 2025, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(y.Buckets) != 12 || y.Buckets[0].Key != "2025-01" || y.Buckets[11].Label != "Dec 2025" {
		t.Fatalf("year buckets = %+v", y.Buckets)
	}
}
