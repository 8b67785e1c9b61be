package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

func day(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC) }

func TestAggregateScopesOwnerAndWindow(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed := []core.Transaction{
		{OwnerID: "u1", Kind: core.Income, Amount: core.Money{Cents: 100000}, Category: "Salary", OccurredAt: day(2025, 10, 1)},
		{OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 2500}, Category: "Food", OccurredAt: day(2025, 10, 2)},
		{OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 1500}, Category: "Food", OccurredAt: day(2025, 10, 31)},
		{OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 9999}, Category: "Food", OccurredAt: day(2025, 11, 1)},
		{OwnerID: "u2", Kind: core.Expense, Amount: core.Money{Cents: 7777}, Category: "Food", OccurredAt: day(2025, 10, 5)},
	}
	for _, tx := range seed {
		if _, err := s.RecordTransaction(ctx, tx); err != nil {
			t.Fatalf("RecordTransaction: %v", err)
		}
	}

	p := core.MonthPeriod(2025, 10)
	rows, err := s.Aggregate(ctx, ports.AggregateQuery{OwnerID: "u1", From: p.Start, To: p.End, GroupBy: ports.ByKind})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	got := map[core.Kind]int64{}
	for _, r := range rows {
		got[r.Kind] = r.Total.Cents
	}
	if got[core.Income] != 100000 || got[core.Expense] != 4000 {
		t.Fatalf("totals = %v", got)
	}

	rows, _ = s.Aggregate(ctx, ports.AggregateQuery{OwnerID: "u1", From: p.Start, To: p.End, Kind: core.Expense, GroupBy: ports.ByDay})
	if len(rows) != 2 || rows[0].Key != "2025-10-02" || rows[1].Key != "2025-10-31" {
		t.Fatalf("day rows = %+v", rows)
	}
}

func TestRecentOrderingAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := s.RecordTransaction(ctx, core.Transaction{OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: int64(i)}, Category: "X", OccurredAt: day(2025, 10, i)})
		if err != nil {
			t.Fatal(err)
		}
	}
	got, _ := s.Recent(ctx, ports.RecentQuery{OwnerID: "u1", Limit: 3})
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].OccurredAt.Day() != 5 || got[2].OccurredAt.Day() != 3 {
		t.Fatalf("unexpected order: %v, %v", got[0].OccurredAt, got[2].OccurredAt)
	}

	got, _ = s.Recent(ctx, ports.RecentQuery{OwnerID: "u1", From: day(2025, 10, 2), To: day(2025, 10, 3)})
	if len(got) != 2 {
		t.Fatalf("range len = %d", len(got))
	}
}

func TestRecentBreaksTiesByIDDescending(t *testing.T) {
	s := New()
	ctx := context.Background()
	created := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	for _, id := range []string{"b", "c", "a"} {
		_, err := s.RecordTransaction(ctx, core.Transaction{
			ID: id, OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 100},
			Category: "X", OccurredAt: day(2025, 10, 1), CreatedAt: created,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Recent(ctx, ports.RecentQuery{OwnerID: "u1", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, tx := range got {
		ids = append(ids, tx.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "b" || ids[2] != "a" {
		t.Fatalf("order = %v, want [c b a]", ids)
	}
}

func TestUpsertBudgetIsUniquePerOwnerMonthCategory(t *testing.T) {
	s := New()
	ctx := context.Background()
	first, err := s.UpsertBudget(ctx, core.Budget{OwnerID: "u1", Category: "Food", Month: "2025-10", Amount: core.Money{Cents: 50000}})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.UpsertBudget(ctx, core.Budget{OwnerID: "u1", Category: "Food", Month: "2025-10", Amount: core.Money{Cents: 60000}})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same id, got %s and %s", first.ID, second.ID)
	}
	budgets, _ := s.BudgetsForMonth(ctx, "u1", "2025-10")
	if len(budgets) != 1 || budgets[0].Amount.Cents != 60000 {
		t.Fatalf("budgets = %+v", budgets)
	}
	if !budgets[0].MonthStart.Equal(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("MonthStart = %v", budgets[0].MonthStart)
	}

	other, _ := s.BudgetsForMonth(ctx, "u2", "2025-10")
	if len(other) != 0 {
		t.Fatalf("budgets leaked across owners: %+v", other)
	}
}

func TestDeleteChecksOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx, _ := s.RecordTransaction(ctx, core.Transaction{OwnerID: "u1", Kind: core.Income, Amount: core.Money{Cents: 1}, Category: "X", OccurredAt: day(2025, 1, 1)})
	if err := s.DeleteTransaction(ctx, "u2", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	ledger := "# owner,kind,amount,category,date,description\nu1,income,10000,Salary,2025-10-01,October pay\nu1,expense,12.50,Food,2025-10-02\nbroken,line\n"
	budgets := "u1,2025-10,Food,500\n"
	if err := os.WriteFile(filepath.Join(dir, "ledger.csv"), []byte(ledger), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "budgets.csv"), []byte(budgets), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFromFiles(dir)
	recent, _ := s.Recent(context.Background(), ports.RecentQuery{OwnerID: "u1", Limit: 10})
	if len(recent) != 2 {
		t.Fatalf("seeded %d transactions, want 2", len(recent))
	}
	b, _ := s.BudgetsForMonth(context.Background(), "u1", "2025-10")
	if len(b) != 1 || b[0].Amount.Cents != 50000 {
		t.Fatalf("budgets = %+v", b)
	}
}
