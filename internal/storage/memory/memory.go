package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/google/uuid"
)

// Store keeps the ledger and the budgets in memory. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	txs     map[string]core.Transaction
	budgets map[string]core.Budget
	now     func() time.Time
}

var (
	_ ports.LedgerReader = (*Store)(nil)
	_ ports.LedgerWriter = (*Store)(nil)
	_ ports.BudgetReader = (*Store)(nil)
	_ ports.BudgetWriter = (*Store)(nil)
)

func New() *Store {
	return &Store{
		txs:     make(map[string]core.Transaction),
		budgets: make(map[string]core.Budget),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewFromFiles seeds a store from base/ledger.csv and base/budgets.csv when
// present. Missing files leave the store empty.
//
// ledger.csv:  owner,kind,amount,category,date(YYYY-MM-DD),description
// budgets.csv: owner,month(YYYY-MM),category,amount,description
func NewFromFiles(base string) *Store {
	s := New()
	ctx := context.Background()
	for _, rec := range readRecords(filepath.Join(base, "ledger.csv")) {
		tx, err := parseLedgerRecord(rec)
		if err == nil {
			_, err = s.RecordTransaction(ctx, tx)
		}
		if err != nil {
			slog.Warn("Skipping ledger seed row", "row", strings.Join(rec, ","), "error", err)
		}
	}
	for _, rec := range readRecords(filepath.Join(base, "budgets.csv")) {
		b, err := parseBudgetRecord(rec)
		if err == nil {
			_, err = s.UpsertBudget(ctx, b)
		}
		if err != nil {
			slog.Warn("Skipping budget seed row", "row", strings.Join(rec, ","), "error", err)
		}
	}
	return s
}

// RecordTransaction inserts tx, or replaces the owner's transaction with the same ID.
func (s *Store) RecordTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if prev, ok := s.txs[tx.ID]; ok {
		if prev.OwnerID != tx.OwnerID {
			return core.Transaction{}, core.ErrNotFound
		}
		tx.CreatedAt = prev.CreatedAt
	} else if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	tx.OccurredAt = tx.OccurredAt.UTC()
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok || tx.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

// UpsertBudget enforces one budget per (owner, month, category).
func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := b.Normalize()
	if err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, existing := range s.budgets {
		if existing.OwnerID == b.OwnerID && existing.Month == b.Month && existing.Category == b.Category && id != b.ID {
			if b.ID != "" {
				return core.Budget{}, fmt.Errorf("budget for %s/%s already exists", b.Month, b.Category)
			}
			b.ID = id
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if prev, ok := s.budgets[b.ID]; ok {
		if prev.OwnerID != b.OwnerID {
			return core.Budget{}, core.ErrNotFound
		}
		b.CreatedAt = prev.CreatedAt
	} else {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) Aggregate(_ context.Context, q ports.AggregateQuery) ([]ports.AggregateRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Aggregate(s.snapshot(), q), nil
}

func (s *Store) Recent(_ context.Context, q ports.RecentQuery) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Recent(s.snapshot(), q), nil
}

func (s *Store) BudgetsForMonth(_ context.Context, ownerID, month string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID == ownerID && b.Month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// snapshot must be called with the lock held.
func (s *Store) snapshot() []core.Transaction {
	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, tx)
	}
	return out
}

func readRecords(path string) [][]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var out [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn("Failed reading seed file", "path", path, "error", err)
			break
		}
		out = append(out, rec)
	}
	return out
}

func parseLedgerRecord(rec []string) (core.Transaction, error) {
	if len(rec) < 5 {
		return core.Transaction{}, errors.New("expected at least 5 fields")
	}
	kind, err := core.ParseKind(rec[1])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(rec[2])
	if err != nil {
		return core.Transaction{}, err
	}
	at, err := time.Parse("2006-01-02", strings.TrimSpace(rec[4]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	tx := core.Transaction{
		OwnerID:    strings.TrimSpace(rec[0]),
		Kind:       kind,
		Amount:     amount,
		Category:   strings.TrimSpace(rec[3]),
		OccurredAt: at,
	}
	if len(rec) > 5 {
		tx.Description = strings.TrimSpace(rec[5])
	}
	return tx, nil
}

func parseBudgetRecord(rec []string) (core.Budget, error) {
	if len(rec) < 4 {
		return core.Budget{}, errors.New("expected at least 4 fields")
	}
	amount, err := core.ParseAmount(rec[3])
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{
		OwnerID:  strings.TrimSpace(rec[0]),
		Month:    strings.TrimSpace(rec[1]),
		Category: strings.TrimSpace(rec[2]),
		Amount:   amount,
	}
	if len(rec) > 4 {
		b.Description = strings.TrimSpace(rec[4])
	}
	return b, nil
}
