package memory

import (
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// Aggregate groups txs the way the SQL repositories do. It is shared by the
// memory store and the read-only spreadsheet backend.
func Aggregate(txs []core.Transaction, q ports.AggregateQuery) []ports.AggregateRow {
	type groupKey struct {
		key  string
		kind core.Kind
	}
	sums := make(map[groupKey]int64)
	var order []groupKey
	for _, tx := range txs {
		if tx.OwnerID != q.OwnerID {
			continue
		}
		if q.Kind != "" && tx.Kind != q.Kind {
			continue
		}
		at := tx.OccurredAt.UTC()
		if at.Before(q.From) || !at.Before(q.To) {
			continue
		}
		k := groupKey{kind: tx.Kind}
		switch q.GroupBy {
		case ports.ByCategory:
			k.key = tx.Category
		case ports.ByDay:
			k.key = at.Format("2006-01-02")
		case ports.ByMonth:
			k.key = at.Format("2006-01")
		}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += tx.Amount.Cents
	}

	rows := make([]ports.AggregateRow, 0, len(order))
	for _, k := range order {
		rows = append(rows, ports.AggregateRow{Key: k.key, Kind: k.kind, Total: core.Money{Cents: sums[k]}})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].Kind < rows[j].Kind
	})
	return rows
}

// Recent returns the newest transactions of q.OwnerID, at most q.Limit of them.
func Recent(txs []core.Transaction, q ports.RecentQuery) []core.Transaction {
	limit := ports.ClampLimit(q.Limit, ports.MaxRecent)
	out := make([]core.Transaction, 0, limit)
	for _, tx := range txs {
		if tx.OwnerID != q.OwnerID {
			continue
		}
		if !q.From.IsZero() && tx.OccurredAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && tx.OccurredAt.After(q.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
