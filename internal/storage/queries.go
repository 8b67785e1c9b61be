package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds every statement the repository runs, bound to one dialect.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

// WithTx returns a copy of q running inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// Rows as stored. Timestamps are unix milliseconds, UTC.
type (
	TransactionRow struct {
		ID            string
		OwnerID       string
		Kind          string
		AmountCents   int64
		Category      string
		Description   string
		OccurredAt    int64
		OccurredDay   string
		OccurredMonth string
		CreatedAt     int64
		UpdatedAt     int64
	}

	BudgetRow struct {
		ID          string
		OwnerID     string
		Category    string
		AmountCents int64
		Month       string
		MonthStart  int64
		Description string
		CreatedAt   int64
		UpdatedAt   int64
	}

	GroupTotal struct {
		GroupKey   string
		Kind       string
		TotalCents int64
	}
)

const transactionColumns = `id, owner_id, kind, amount_cents, category, description, occurred_at, occurred_day, occurred_month, created_at, updated_at`

const upsertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    kind = excluded.kind,
    amount_cents = excluded.amount_cents,
    category = excluded.category,
    description = excluded.description,
    occurred_at = excluded.occurred_at,
    occurred_day = excluded.occurred_day,
    occurred_month = excluded.occurred_month,
    updated_at = excluded.updated_at
WHERE transactions.owner_id = excluded.owner_id
RETURNING created_at`

// UpsertTransaction returns sql.ErrNoRows when id exists under another owner.
func (q *Queries) UpsertTransaction(ctx context.Context, r TransactionRow) (int64, error) {
	var createdAt int64
	err := q.db.QueryRowContext(ctx, q.dialect.Rebind(upsertTransaction),
		r.ID, r.OwnerID, r.Kind, r.AmountCents, r.Category, r.Description,
		r.OccurredAt, r.OccurredDay, r.OccurredMonth, r.CreatedAt, r.UpdatedAt,
	).Scan(&createdAt)
	return createdAt, err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.Rebind(deleteTransaction), id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AggregateParams selects transactions of one owner in [From, To).
type AggregateParams struct {
	OwnerID string
	From    int64
	To      int64
	Kind    string // empty matches both
}

// groupExpr maps a grouping onto a column. Only these fixed expressions are
// ever interpolated into SQL.
var groupExpr = map[string]string{
	"kind":     "''",
	"category": "category",
	"day":      "occurred_day",
	"month":    "occurred_month",
}

// SumByGroup sums amount_cents per (group, kind).
func (q *Queries) SumByGroup(ctx context.Context, groupBy string, p AggregateParams) ([]GroupTotal, error) {
	expr, ok := groupExpr[groupBy]
	if !ok {
		return nil, fmt.Errorf("unsupported grouping %q", groupBy)
	}
	query := `SELECT ` + expr + ` AS group_key, kind, CAST(SUM(amount_cents) AS BIGINT) AS total
FROM transactions
WHERE owner_id = ? AND occurred_at >= ? AND occurred_at < ?`
	args := []any{p.OwnerID, p.From, p.To}
	if p.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, p.Kind)
	}
	if groupBy == "kind" {
		query += ` GROUP BY kind ORDER BY kind`
	} else {
		query += ` GROUP BY ` + expr + `, kind ORDER BY ` + expr + `, kind`
	}

	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupTotal
	for rows.Next() {
		var g GroupTotal
		if err := rows.Scan(&g.GroupKey, &g.Kind, &g.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RecentParams bounds are inclusive; nil leaves a side open.
type RecentParams struct {
	OwnerID string
	From    *int64
	To      *int64
	Limit   int
}

func (q *Queries) ListRecent(ctx context.Context, p RecentParams) ([]TransactionRow, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ?`
	args := []any{p.OwnerID}
	if p.From != nil {
		query += ` AND occurred_at >= ?`
		args = append(args, *p.From)
	}
	if p.To != nil {
		query += ` AND occurred_at <= ?`
		args = append(args, *p.To)
	}
	query += ` ORDER BY occurred_at DESC, created_at DESC, id DESC LIMIT ?`
	args = append(args, p.Limit)

	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		var r TransactionRow
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Kind, &r.AmountCents, &r.Category, &r.Description,
			&r.OccurredAt, &r.OccurredDay, &r.OccurredMonth, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const budgetColumns = `id, owner_id, category, amount_cents, month, month_start, description, created_at, updated_at`

const upsertBudgetByKey = `INSERT INTO budgets (` + budgetColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (owner_id, month, category) DO UPDATE SET
    amount_cents = excluded.amount_cents,
    month_start = excluded.month_start,
    description = excluded.description,
    updated_at = excluded.updated_at
RETURNING id, created_at`

// UpsertBudgetByKey inserts or updates the budget identified by
// (owner, month, category), returning the stored id.
func (q *Queries) UpsertBudgetByKey(ctx context.Context, r BudgetRow) (string, int64, error) {
	var id string
	var createdAt int64
	err := q.db.QueryRowContext(ctx, q.dialect.Rebind(upsertBudgetByKey),
		r.ID, r.OwnerID, r.Category, r.AmountCents, r.Month, r.MonthStart, r.Description, r.CreatedAt, r.UpdatedAt,
	).Scan(&id, &createdAt)
	return id, createdAt, err
}

const updateBudgetByID = `UPDATE budgets SET
    category = ?, amount_cents = ?, month = ?, month_start = ?, description = ?, updated_at = ?
WHERE id = ? AND owner_id = ?
RETURNING created_at`

// UpdateBudgetByID returns sql.ErrNoRows when no budget of owner has id.
func (q *Queries) UpdateBudgetByID(ctx context.Context, r BudgetRow) (int64, error) {
	var createdAt int64
	err := q.db.QueryRowContext(ctx, q.dialect.Rebind(updateBudgetByID),
		r.Category, r.AmountCents, r.Month, r.MonthStart, r.Description, r.UpdatedAt, r.ID, r.OwnerID,
	).Scan(&createdAt)
	return createdAt, err
}

const insertBudget = `INSERT INTO budgets (` + budgetColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`

// InsertBudget reports false when id or the unique key is taken.
func (q *Queries) InsertBudget(ctx context.Context, r BudgetRow) (bool, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.Rebind(insertBudget),
		r.ID, r.OwnerID, r.Category, r.AmountCents, r.Month, r.MonthStart, r.Description, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

const deleteBudget = `DELETE FROM budgets WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.Rebind(deleteBudget), id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listBudgetsForMonth = `SELECT ` + budgetColumns + ` FROM budgets WHERE owner_id = ? AND month = ? ORDER BY category`

func (q *Queries) ListBudgetsForMonth(ctx context.Context, ownerID, month string) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.Rebind(listBudgetsForMonth), ownerID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BudgetRow
	for rows.Next() {
		var r BudgetRow
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Category, &r.AmountCents, &r.Month, &r.MonthStart,
			&r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
