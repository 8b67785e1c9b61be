package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Repository is the SQL-backed ledger and budget store.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	queries *Queries
	now     func() time.Time
}

var (
	_ ports.LedgerReader = (*Repository)(nil)
	_ ports.LedgerWriter = (*Repository)(nil)
	_ ports.BudgetReader = (*Repository)(nil)
	_ ports.BudgetWriter = (*Repository)(nil)
	_ ports.Pinger       = (*Repository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and migrates it.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return open(SQLite, dsn)
}

// NewPostgresRepository connects to databaseURL and migrates it.
func NewPostgresRepository(databaseURL string) (*Repository, error) {
	return open(Postgres, databaseURL)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.Name, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		dialect: d,
		queries: New(db, d),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Dialect reports which SQL backend the repository talks to.
func (r *Repository) Dialect() Dialect { return r.dialect }

// RecordTransaction inserts tx, or replaces the owner's transaction with the
// same ID. An ID held by another owner yields core.ErrNotFound.
func (r *Repository) RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := r.now()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.OccurredAt = tx.OccurredAt.UTC()
	tx.Category = strings.TrimSpace(tx.Category)
	tx.Description = strings.TrimSpace(tx.Description)
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	createdAt, err := r.queries.UpsertTransaction(ctx, TransactionRow{
		ID:            tx.ID,
		OwnerID:       tx.OwnerID,
		Kind:          string(tx.Kind),
		AmountCents:   tx.Amount.Cents,
		Category:      tx.Category,
		Description:   tx.Description,
		OccurredAt:    tx.OccurredAt.UnixMilli(),
		OccurredDay:   tx.OccurredAt.Format(time.DateOnly),
		OccurredMonth: tx.OccurredAt.Format("2006-01"),
		CreatedAt:     tx.CreatedAt.UnixMilli(),
		UpdatedAt:     tx.UpdatedAt.UnixMilli(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("upsert transaction: %w", err)
	}
	tx.CreatedAt = fromMillis(createdAt)

	slog.DebugContext(ctx, "Transaction saved",
		"id", tx.ID,
		"owner_id", tx.OwnerID,
		"kind", tx.Kind,
		"backend", r.dialect.Name)
	return tx, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpsertBudget enforces one budget per (owner, month, category). Without an
// ID the unique key decides between insert and update.
func (r *Repository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := b.Normalize()
	if err != nil {
		return core.Budget{}, err
	}
	now := r.now()
	b.UpdatedAt = now
	row := budgetToRow(b)

	if b.ID == "" {
		row.ID = uuid.NewString()
		row.CreatedAt = now.UnixMilli()
		id, createdAt, err := r.queries.UpsertBudgetByKey(ctx, row)
		if err != nil {
			return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
		}
		b.ID = id
		b.CreatedAt = fromMillis(createdAt)
		return b, nil
	}

	createdAt, err := r.queries.UpdateBudgetByID(ctx, row)
	if err == nil {
		b.CreatedAt = fromMillis(createdAt)
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}

	// No budget of this owner has the ID: insert unless the ID or the key is taken.
	row.CreatedAt = now.UnixMilli()
	inserted, err := r.queries.InsertBudget(ctx, row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	if !inserted {
		if r.budgetIDTaken(ctx, b.ID) {
			return core.Budget{}, core.ErrNotFound
		}
		return core.Budget{}, fmt.Errorf("budget for %s/%s already exists", b.Month, b.Category)
	}
	b.CreatedAt = now
	return b, nil
}

func (r *Repository) budgetIDTaken(ctx context.Context, id string) bool {
	var n int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(*) FROM budgets WHERE id = ?`), id).Scan(&n)
	return err == nil && n > 0
}

func (r *Repository) DeleteBudget(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteBudget(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) Aggregate(ctx context.Context, q ports.AggregateQuery) ([]ports.AggregateRow, error) {
	groups, err := r.queries.SumByGroup(ctx, string(q.GroupBy), AggregateParams{
		OwnerID: q.OwnerID,
		From:    q.From.UTC().UnixMilli(),
		To:      q.To.UTC().UnixMilli(),
		Kind:    string(q.Kind),
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate transactions: %w", err)
	}
	out := make([]ports.AggregateRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, ports.AggregateRow{
			Key:   g.GroupKey,
			Kind:  core.Kind(g.Kind),
			Total: core.Money{Cents: g.TotalCents},
		})
	}
	return out, nil
}

func (r *Repository) Recent(ctx context.Context, q ports.RecentQuery) ([]core.Transaction, error) {
	p := RecentParams{OwnerID: q.OwnerID, Limit: ports.ClampLimit(q.Limit, ports.MaxRecent)}
	if !q.From.IsZero() {
		from := q.From.UTC().UnixMilli()
		p.From = &from
	}
	if !q.To.IsZero() {
		to := q.To.UTC().UnixMilli()
		p.To = &to
	}
	rows, err := r.queries.ListRecent(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Transaction{
			ID:          row.ID,
			OwnerID:     row.OwnerID,
			Kind:        core.Kind(row.Kind),
			Amount:      core.Money{Cents: row.AmountCents},
			Category:    row.Category,
			Description: row.Description,
			OccurredAt:  fromMillis(row.OccurredAt),
			CreatedAt:   fromMillis(row.CreatedAt),
			UpdatedAt:   fromMillis(row.UpdatedAt),
		})
	}
	return out, nil
}

func (r *Repository) BudgetsForMonth(ctx context.Context, ownerID, month string) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgetsForMonth(ctx, ownerID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Budget{
			ID:          row.ID,
			OwnerID:     row.OwnerID,
			Category:    row.Category,
			Amount:      core.Money{Cents: row.AmountCents},
			Month:       row.Month,
			MonthStart:  fromMillis(row.MonthStart),
			Description: row.Description,
			CreatedAt:   fromMillis(row.CreatedAt),
			UpdatedAt:   fromMillis(row.UpdatedAt),
		})
	}
	return out, nil
}

func budgetToRow(b core.Budget) BudgetRow {
	return BudgetRow{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Category:    b.Category,
		AmountCents: b.Amount.Cents,
		Month:       b.Month,
		MonthStart:  b.MonthStart.UnixMilli(),
		Description: b.Description,
		CreatedAt:   b.CreatedAt.UnixMilli(),
		UpdatedAt:   b.UpdatedAt.UnixMilli(),
	}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
