package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func at(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC) }

func record(t *testing.T, repo *Repository, owner string, kind core.Kind, cents int64, category string, when time.Time) core.Transaction {
	t.Helper()
	tx, err := repo.RecordTransaction(context.Background(), core.Transaction{
		OwnerID:    owner,
		Kind:       kind,
		Amount:     core.Money{Cents: cents},
		Category:   category,
		OccurredAt: when,
	})
	if err != nil {
		t.Fatalf("RecordTransaction() error = %v", err)
	}
	return tx
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", SQLite, "SELECT ? , ?", "SELECT ? , ?"},
		{"postgres numbered", Postgres, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{"quoted literal kept", Postgres, "SELECT '?' , ?", "SELECT '?' , $1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.Rebind(tt.in); got != tt.want {
				t.Errorf("Rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregateGroupsWithinWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record(t, repo, "u1", core.Income, 1000000, "Salary", at(2024, 9, 1))
	record(t, repo, "u1", core.Expense, 50000, "Food", at(2024, 9, 3))
	record(t, repo, "u1", core.Expense, 25000, "Food", at(2024, 9, 3))
	record(t, repo, "u1", core.Expense, 10000, "Rent", at(2024, 9, 30))
	record(t, repo, "u1", core.Expense, 99999, "Food", at(2024, 10, 1))
	record(t, repo, "u2", core.Expense, 77777, "Food", at(2024, 9, 5))

	p := core.MonthPeriod(2024, 9)

	byKind, err := repo.Aggregate(ctx, ports.AggregateQuery{OwnerID: "u1", From: p.Start, To: p.End, GroupBy: ports.ByKind})
	if err != nil {
		t.Fatalf("Aggregate(kind) error = %v", err)
	}
	totals := map[core.Kind]int64{}
	for _, row := range byKind {
		if row.Key != "" {
			t.Errorf("kind grouping key = %q, want empty", row.Key)
		}
		totals[row.Kind] = row.Total.Cents
	}
	if totals[core.Income] != 1000000 || totals[core.Expense] != 85000 {
		t.Errorf("totals = %v, want income 1000000 expense 85000", totals)
	}

	byCat, err := repo.Aggregate(ctx, ports.AggregateQuery{OwnerID: "u1", From: p.Start, To: p.End, Kind: core.Expense, GroupBy: ports.ByCategory})
	if err != nil {
		t.Fatalf("Aggregate(category) error = %v", err)
	}
	if len(byCat) != 2 || byCat[0].Key != "Food" || byCat[0].Total.Cents != 75000 || byCat[1].Key != "Rent" {
		t.Errorf("category rows = %+v", byCat)
	}

	byDay, err := repo.Aggregate(ctx, ports.AggregateQuery{OwnerID: "u1", From: p.Start, To: p.End, GroupBy: ports.ByDay})
	if err != nil {
		t.Fatalf("Aggregate(day) error = %v", err)
	}
	days := map[string]bool{}
	for _, row := range byDay {
		days[row.Key] = true
	}
	for _, want := range []string{"2024-09-01", "2024-09-03", "2024-09-30"} {
		if !days[want] {
			t.Errorf("missing day %s in %+v", want, byDay)
		}
	}
	if days["2024-10-01"] {
		t.Error("day outside the window was aggregated")
	}

	year := core.YearPeriod(2024)
	byMonth, err := repo.Aggregate(ctx, ports.AggregateQuery{OwnerID: "u1", From: year.Start, To: year.End, Kind: core.Expense, GroupBy: ports.ByMonth})
	if err != nil {
		t.Fatalf("Aggregate(month) error = %v", err)
	}
	if len(byMonth) != 2 || byMonth[0].Key != "2024-09" || byMonth[1].Key != "2024-10" {
		t.Errorf("month rows = %+v", byMonth)
	}
}

func TestRecordTransactionRejectsForeignID(t *testing.T) {
	repo := newTestRepo(t)
	tx := record(t, repo, "u1", core.Expense, 100, "Food", at(2024, 9, 1))

	foreign := tx
	foreign.OwnerID = "u2"
	if _, err := repo.RecordTransaction(context.Background(), foreign); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign upsert error = %v, want ErrNotFound", err)
	}

	tx.Amount = core.Money{Cents: 250}
	updated, err := repo.RecordTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("owner upsert error = %v", err)
	}
	if !updated.CreatedAt.Equal(tx.CreatedAt.Truncate(time.Millisecond)) {
		t.Errorf("CreatedAt changed: %v -> %v", tx.CreatedAt, updated.CreatedAt)
	}
}

func TestRecentNewestFirstWithBounds(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for d := 1; d <= 5; d++ {
		record(t, repo, "u1", core.Expense, int64(d*100), "Food", at(2024, 9, d))
	}

	got, err := repo.Recent(ctx, ports.RecentQuery{OwnerID: "u1", Limit: 3})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 || got[0].OccurredAt.Day() != 5 || got[2].OccurredAt.Day() != 3 {
		t.Errorf("Recent() = %+v", got)
	}

	got, err = repo.Recent(ctx, ports.RecentQuery{OwnerID: "u1", From: at(2024, 9, 2), To: at(2024, 9, 3), Limit: 10})
	if err != nil {
		t.Fatalf("Recent(bounded) error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("bounded Recent() returned %d rows, want 2 (inclusive bounds)", len(got))
	}
}

func TestUpsertBudgetUniquePerOwnerMonthCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.UpsertBudget(ctx, core.Budget{OwnerID: "u1", Category: "Food", Month: "2024-09", Amount: core.Money{Cents: 1000}})
	if err != nil {
		t.Fatalf("UpsertBudget() error = %v", err)
	}
	second, err := repo.UpsertBudget(ctx, core.Budget{OwnerID: "u1", Category: "Food", Month: "2024-09", Amount: core.Money{Cents: 1500}})
	if err != nil {
		t.Fatalf("UpsertBudget() second error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second upsert id = %s, want %s", second.ID, first.ID)
	}

	// Anonymous tenant budgets share the same key rules.
	if _, err := repo.UpsertBudget(ctx, core.Budget{Category: "Food", Month: "2024-09", Amount: core.Money{Cents: 500}}); err != nil {
		t.Fatalf("anonymous UpsertBudget() error = %v", err)
	}

	budgets, err := repo.BudgetsForMonth(ctx, "u1", "2024-09")
	if err != nil {
		t.Fatalf("BudgetsForMonth() error = %v", err)
	}
	if len(budgets) != 1 || budgets[0].Amount.Cents != 1500 {
		t.Errorf("BudgetsForMonth() = %+v", budgets)
	}
	if !budgets[0].MonthStart.Equal(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MonthStart = %v", budgets[0].MonthStart)
	}

	foreign := first
	foreign.OwnerID = "u2"
	if _, err := repo.UpsertBudget(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign budget upsert error = %v, want ErrNotFound", err)
	}
}

func TestDeleteChecksOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tx := record(t, repo, "u1", core.Expense, 100, "Food", at(2024, 9, 1))

	if err := repo.DeleteTransaction(ctx, "u2", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
		t.Errorf("DeleteTransaction() error = %v", err)
	}
	if err := repo.DeleteBudget(ctx, "u1", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteBudget(missing) error = %v, want ErrNotFound", err)
	}
}
