package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/identity"
	"fintrack/internal/ports"
	"fintrack/internal/storage/memory"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, ledger ports.LedgerReader, budgets ports.BudgetReader) *Server {
	t.Helper()
	eng := aggregate.New(ledger, budgets, aggregate.WithTaxEstimator(aggregate.FlatRateTax{Rate: aggregate.DefaultFlatTaxRate}))
	svc := dashboard.New(eng, ledger, dashboard.WithClock(func() time.Time {
		return time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	}))
	srv := NewServer(ServerConfig{Addr: ":0", StoreTimeout: time.Second, RateLimitRPM: 1000}, svc, nil, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	txs := []core.Transaction{
		{OwnerID: "u1", Kind: core.Income, Amount: core.Money{Cents: 1000000}, Category: "Salary", OccurredAt: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)},
		{OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 325000}, Category: "Rent", OccurredAt: time.Date(2025, 10, 2, 9, 0, 0, 0, time.UTC)},
		{OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 75000}, Category: "Food", OccurredAt: time.Date(2025, 10, 3, 9, 0, 0, 0, time.UTC)},
		{OwnerID: "u2", Kind: core.Expense, Amount: core.Money{Cents: 999}, Category: "Food", OccurredAt: time.Date(2025, 10, 3, 9, 0, 0, 0, time.UTC)},
	}
	for _, tx := range txs {
		if _, err := s.RecordTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.UpsertBudget(ctx, core.Budget{OwnerID: "u1", Category: "Food", Amount: core.Money{Cents: 50000}, Month: "2025-10"}); err != nil {
		t.Fatal(err)
	}
	return s
}

func get(t *testing.T, srv *Server, path, owner string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if owner != "" {
		req.Header.Set(identity.DefaultHeader, owner)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New(), memory.New())
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rec := get(t, srv, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	srv.readiness = pingFunc(func(context.Context) error { return errors.New("db down") })
	if rec := get(t, srv, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing backend = %d", rec.Code)
	}
}

func TestDashboardRequiresIdentity(t *testing.T) {
	s := seededStore(t)
	srv := newTestServer(t, s, s)
	for _, path := range []string{"/api/v1/dashboard", "/api/v1/dashboard/income-vs-expenses", "/api/v1/dashboard/recent"} {
		rec := get(t, srv, path, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s status=%d, want 401", path, rec.Code)
		}
	}
}

func TestSummaryEndpoint(t *testing.T) {
	s := seededStore(t)
	srv := newTestServer(t, s, s)

	rec := get(t, srv, "/api/v1/dashboard?month=10&year=2025", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var view dashboard.SummaryView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Cards.Income.Amount != 10000 || view.Cards.Expenses.Amount != 4000 || view.Cards.SavingsRatePct != 60 {
		t.Fatalf("cards = %+v", view.Cards)
	}
	if len(view.Budgets) != 1 || view.Budgets[0].Spent != 750 || view.Budgets[0].Remaining != 0 || view.Budgets[0].UsedPct != 100 {
		t.Fatalf("budgets = %+v", view.Budgets)
	}
	if len(view.Breakdown.ByCategory) != 2 || view.Breakdown.ByCategory[0].Category != "Rent" {
		t.Fatalf("breakdown = %+v", view.Breakdown)
	}

	// Default month comes from the service clock; /summary is an alias.
	rec = get(t, srv, "/api/v1/dashboard/summary", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary alias status=%d", rec.Code)
	}
}

func TestSummaryValidation(t *testing.T) {
	srv := newTestServer(t, memory.New(), memory.New())
	tests := []struct {
		query string
		field string
	}{
		{"?month=13", "month"},
		{"?month=x", "month"},
		{"?year=1999", "year"},
	}
	for _, tt := range tests {
		rec := get(t, srv, "/api/v1/dashboard"+tt.query, "u1")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d", tt.query, rec.Code)
			continue
		}
		var body ErrorBody
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Field != tt.field {
			t.Errorf("%s field=%q, want %q", tt.query, body.Field, tt.field)
		}
	}
}

func TestIncomeVsExpensesEndpoint(t *testing.T) {
	s := seededStore(t)
	srv := newTestServer(t, s, s)

	rec := get(t, srv, "/api/v1/dashboard/income-vs-expenses?range=quarter&month=10&year=2025", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var view dashboard.ComparisonView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Period != core.QuarterKind || len(view.Labels) != 3 || view.Labels[0] != "Oct 2025" {
		t.Fatalf("view = %+v", view)
	}
	if view.Series[0].Data[0] != 10000 || view.Series[1].Data[0] != 4000 {
		t.Fatalf("series = %+v", view.Series)
	}

	rec = get(t, srv, "/api/v1/dashboard/income-vs-expenses?month=10&year=2025", "u1")
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if len(view.Labels) != 31 || view.Labels[0] != "01 Oct" {
		t.Fatalf("month labels = %v", view.Labels)
	}

	if rec := get(t, srv, "/api/v1/dashboard/income-vs-expenses?period=week", "u1"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad period status=%d", rec.Code)
	}
}

func TestRecentEndpoint(t *testing.T) {
	s := seededStore(t)
	srv := newTestServer(t, s, s)

	rec := get(t, srv, "/api/v1/dashboard/recent?limit=2", "u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var view dashboard.RecentView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Transactions) != 2 || view.Transactions[0].Category != "Food" {
		t.Fatalf("transactions = %+v", view.Transactions)
	}
	for _, tx := range view.Transactions {
		if tx.OwnerID != "u1" {
			t.Fatalf("leaked transaction of %s", tx.OwnerID)
		}
	}

	rec = get(t, srv, "/api/v1/dashboard/recent?startDate=2025-10-02&endDate=2025-10-02", "u1")
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if len(view.Transactions) != 1 || view.Transactions[0].Category != "Rent" {
		t.Fatalf("date filtered = %+v", view.Transactions)
	}

	for _, q := range []string{"?limit=0", "?limit=101", "?startDate=yesterday", "?startDate=2025-10-05&endDate=2025-10-01"} {
		if rec := get(t, srv, "/api/v1/dashboard/recent"+q, "u1"); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d, want 400", q, rec.Code)
		}
	}
}

type brokenLedger struct{}

func (brokenLedger) Aggregate(context.Context, ports.AggregateQuery) ([]ports.AggregateRow, error) {
	return nil, errors.New("connection refused on 10.0.0.5:5432")
}

func (brokenLedger) Recent(context.Context, ports.RecentQuery) ([]core.Transaction, error) {
	return nil, errors.New("connection refused on 10.0.0.5:5432")
}

func TestStoreFailureIsGeneric(t *testing.T) {
	srv := newTestServer(t, brokenLedger{}, memory.New())
	rec := get(t, srv, "/api/v1/dashboard?month=10&year=2025", "u1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	var body ErrorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "Failed to fetch dashboard data" {
		t.Fatalf("body leaked details: %+v", body)
	}
}
