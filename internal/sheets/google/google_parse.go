package google

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Transactions sheet: Date, Type, Amount, Category, Description, Owner, ID.
// Budgets sheet: Month, Category, Amount, Owner, Description, ID.
// Columns are located by header name; Owner, Description and ID are optional.

var dateLayouts = []string{time.DateOnly, time.RFC3339, "02/01/2006", "2006/01/02"}

func parseTransactions(values [][]any, defaultOwner string) ([]core.Transaction, int) {
	if len(values) == 0 {
		return nil, 0
	}
	headers := toStrings(values[0])
	colDate := indexOf(headers, "Date")
	colType := indexOf(headers, "Type")
	colAmount := indexOf(headers, "Amount")
	colCategory := indexOf(headers, "Category")
	colDesc := indexOf(headers, "Description")
	colOwner := indexOf(headers, "Owner")
	colID := indexOf(headers, "ID")
	if colDate == -1 || colType == -1 || colAmount == -1 || colCategory == -1 {
		return nil, len(values) - 1
	}

	var out []core.Transaction
	skipped := 0
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		tx, err := parseTransactionRow(row, i+1, colDate, colType, colAmount, colCategory, colDesc, colOwner, colID, defaultOwner)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, tx)
	}
	return out, skipped
}

func parseTransactionRow(row []string, sheetRow, colDate, colType, colAmount, colCategory, colDesc, colOwner, colID int, defaultOwner string) (core.Transaction, error) {
	occurred, err := parseDate(safeGet(row, colDate))
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(safeGet(row, colType))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(safeGet(row, colAmount))
	if err != nil {
		return core.Transaction{}, err
	}
	owner := safeGet(row, colOwner)
	if owner == "" {
		owner = defaultOwner
	}
	id := safeGet(row, colID)
	if id == "" {
		id = fmt.Sprintf("row-%d", sheetRow)
	}
	tx := core.Transaction{
		ID:          id,
		OwnerID:     owner,
		Kind:        kind,
		Amount:      amount,
		Category:    safeGet(row, colCategory),
		Description: safeGet(row, colDesc),
		OccurredAt:  occurred,
		CreatedAt:   occurred,
		UpdatedAt:   occurred,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func parseBudgets(values [][]any, defaultOwner string) ([]core.Budget, int) {
	if len(values) == 0 {
		return nil, 0
	}
	headers := toStrings(values[0])
	colMonth := indexOf(headers, "Month")
	colCategory := indexOf(headers, "Category")
	colAmount := indexOf(headers, "Amount")
	colOwner := indexOf(headers, "Owner")
	colDesc := indexOf(headers, "Description")
	colID := indexOf(headers, "ID")
	if colMonth == -1 || colCategory == -1 || colAmount == -1 {
		return nil, len(values) - 1
	}

	// Later rows win for the same (owner, month, category).
	byKey := map[string]core.Budget{}
	skipped := 0
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		amount, err := core.ParseAmount(safeGet(row, colAmount))
		if err != nil {
			skipped++
			continue
		}
		owner := safeGet(row, colOwner)
		if owner == "" {
			owner = defaultOwner
		}
		id := safeGet(row, colID)
		if id == "" {
			id = fmt.Sprintf("row-%d", i+1)
		}
		b, err := core.Budget{
			ID:          id,
			OwnerID:     owner,
			Category:    safeGet(row, colCategory),
			Amount:      amount,
			Month:       safeGet(row, colMonth),
			Description: safeGet(row, colDesc),
		}.Normalize()
		if err == nil {
			err = b.Validate()
		}
		if err != nil {
			skipped++
			continue
		}
		byKey[b.OwnerID+"|"+b.Month+"|"+b.Category] = b
	}

	out := make([]core.Budget, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Category < out[j].Category
	})
	return out, skipped
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return strings.TrimSpace(arr[idx])
}
