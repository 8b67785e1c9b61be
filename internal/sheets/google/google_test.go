package google

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type fakeSheet struct {
	calls  atomic.Int32
	values map[string][][]any
	err    error
}

func (f *fakeSheet) fetch(_ context.Context, rng string) ([][]any, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	sheet, _, _ := strings.Cut(rng, "!")
	return f.values[sheet], nil
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{values: map[string][][]any{
		"Transactions": {
			{"Date", "Type", "Amount", "Category", "Owner"},
			{"2024-09-01", "income", "100", "Salary", "u1"},
			{"2024-09-02", "expense", "40", "Food", "u1"},
			{"2024-09-03", "expense", "5", "Food", "u2"},
		},
		"Budgets": {
			{"Month", "Category", "Amount", "Owner"},
			{"2024-09", "Food", "50", "u1"},
		},
	}}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestClientReadsThroughSnapshot(t *testing.T) {
	sheet := newFakeSheet()
	c := newClient(sheet.fetch, Options{})
	ctx := context.Background()
	p := core.MonthPeriod(2024, 9)

	rows, err := c.Aggregate(ctx, ports.AggregateQuery{OwnerID: "u1", From: p.Start, To: p.End, GroupBy: ports.ByKind})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	totals := map[core.Kind]int64{}
	for _, r := range rows {
		totals[r.Kind] = r.Total.Cents
	}
	if totals[core.Income] != 10000 || totals[core.Expense] != 4000 {
		t.Errorf("totals = %v", totals)
	}

	budgets, err := c.BudgetsForMonth(ctx, "u1", "2024-09")
	if err != nil || len(budgets) != 1 {
		t.Fatalf("BudgetsForMonth() = %v, %v", budgets, err)
	}

	recent, err := c.Recent(ctx, ports.RecentQuery{OwnerID: "u1", Limit: 10})
	if err != nil || len(recent) != 2 {
		t.Fatalf("Recent() = %v, %v", recent, err)
	}

	// One snapshot load reads both sheets once.
	if got := sheet.calls.Load(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
}

func TestSnapshotExpiresAfterTTL(t *testing.T) {
	sheet := newFakeSheet()
	c := newClient(sheet.fetch, Options{CacheTTL: time.Minute})
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := c.BudgetsForMonth(ctx, "u1", "2024-09"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.BudgetsForMonth(ctx, "u1", "2024-09"); err != nil {
		t.Fatal(err)
	}
	if got := sheet.calls.Load(); got != 2 {
		t.Fatalf("calls within TTL = %d, want 2", got)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.BudgetsForMonth(ctx, "u1", "2024-09"); err != nil {
		t.Fatal(err)
	}
	if got := sheet.calls.Load(); got != 4 {
		t.Errorf("calls after TTL = %d, want 4", got)
	}

	c.Invalidate()
	if _, err := c.BudgetsForMonth(ctx, "u1", "2024-09"); err != nil {
		t.Fatal(err)
	}
	if got := sheet.calls.Load(); got != 6 {
		t.Errorf("calls after Invalidate = %d, want 6", got)
	}
}

func TestFetchErrorPropagates(t *testing.T) {
	sheet := &fakeSheet{err: errors.New("quota exceeded")}
	c := newClient(sheet.fetch, Options{})
	if _, err := c.Recent(context.Background(), ports.RecentQuery{OwnerID: "u1"}); err == nil {
		t.Fatal("expected fetch error")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestWritersAreReadOnly(t *testing.T) {
	c := newClient(newFakeSheet().fetch, Options{})
	ctx := context.Background()
	if _, err := c.RecordTransaction(ctx, core.Transaction{}); !errors.Is(err, core.ErrReadOnlyBackend) {
		t.Errorf("RecordTransaction error = %v", err)
	}
	if err := c.DeleteTransaction(ctx, "u1", "x"); !errors.Is(err, core.ErrReadOnlyBackend) {
		t.Errorf("DeleteTransaction error = %v", err)
	}
	if _, err := c.UpsertBudget(ctx, core.Budget{}); !errors.Is(err, core.ErrReadOnlyBackend) {
		t.Errorf("UpsertBudget error = %v", err)
	}
	if err := c.DeleteBudget(ctx, "u1", "x"); !errors.Is(err, core.ErrReadOnlyBackend) {
		t.Errorf("DeleteBudget error = %v", err)
	}
}
