package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

type recordingPublisher struct {
	msgs []*amqp.LedgerMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *amqp.LedgerMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

type recordingInvalidator struct {
	owners []string
}

func (i *recordingInvalidator) InvalidateOwner(ownerID string) {
	i.owners = append(i.owners, ownerID)
}

func TestRecordTransactionPublishesAndInvalidates(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	svc := NewLedgerService(store, store, WithPublisher(pub), WithInvalidator(inv))

	tx, err := svc.RecordTransaction(context.Background(), core.Transaction{
		OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 500},
		Category: "Food", OccurredAt: time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RecordTransaction() error = %v", err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Type != amqp.TransactionUpserted || pub.msgs[0].ID != tx.ID {
		t.Errorf("published = %+v", pub.msgs)
	}
	if len(inv.owners) != 1 || inv.owners[0] != "u1" {
		t.Errorf("owner invalidations after record = %v", inv.owners)
	}

	if err := svc.DeleteTransaction(context.Background(), "u1", tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if len(pub.msgs) != 2 || pub.msgs[1].Type != amqp.TransactionDeleted {
		t.Errorf("published = %+v", pub.msgs)
	}
	if len(inv.owners) != 2 || inv.owners[1] != "u1" {
		t.Errorf("owner invalidations after delete = %v", inv.owners)
	}
}

func TestMovingTransactionDropsEveryCachedMonth(t *testing.T) {
	store := memory.New()
	cached := map[string]bool{"u1|2024-09": true, "u1|2024-10": true, "u2|2024-09": true}
	inv := &cacheInvalidator{keys: cached}
	svc := NewLedgerService(store, store, WithInvalidator(inv))

	tx := core.Transaction{
		ID: "tx-1", OwnerID: "u1", Kind: core.Expense, Amount: core.Money{Cents: 500},
		Category: "Food", OccurredAt: time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC),
	}
	if _, err := svc.RecordTransaction(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	cached["u1|2024-09"] = true

	tx.OccurredAt = time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC)
	if _, err := svc.RecordTransaction(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	if cached["u1|2024-09"] {
		t.Error("summary for the month the transaction left is still cached")
	}
	if !cached["u2|2024-09"] {
		t.Error("another owner's summary was dropped")
	}
}

// cacheInvalidator drops keys the way the dashboard summary cache does.
type cacheInvalidator struct {
	keys map[string]bool
}

func (c *cacheInvalidator) InvalidateOwner(ownerID string) {
	for k := range c.keys {
		if strings.HasPrefix(k, ownerID+"|") {
			delete(c.keys, k)
		}
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{err: errors.New("circuit breaker is open")}
	svc := NewLedgerService(store, store, WithPublisher(pub))

	b, err := svc.UpsertBudget(context.Background(), core.Budget{
		OwnerID: "u1", Category: "Food", Month: "2024-09", Amount: core.Money{Cents: 1000},
	})
	if err != nil {
		t.Fatalf("UpsertBudget() error = %v", err)
	}
	if b.ID == "" {
		t.Error("budget id not assigned")
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Type != amqp.BudgetUpserted {
		t.Errorf("published = %+v", pub.msgs)
	}
}

func TestStoreErrorIsNotPublished(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	svc := NewLedgerService(store, store, WithPublisher(pub))

	if err := svc.DeleteBudget(context.Background(), "u1", "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("DeleteBudget() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.RecordTransaction(context.Background(), core.Transaction{OwnerID: "u1"}); err == nil {
		t.Fatal("expected validation error")
	}
	if len(pub.msgs) != 0 {
		t.Errorf("published %d messages for failed writes", len(pub.msgs))
	}
}

func TestCloseJoinsErrors(t *testing.T) {
	closed := 0
	svc := NewLedgerService(nil, nil,
		WithCloser(func() error { closed++; return nil }),
		WithCloser(func() error { closed++; return errors.New("boom") }),
	)
	if err := svc.Close(); err == nil {
		t.Error("expected close error")
	}
	if closed != 2 {
		t.Errorf("closed = %d, want 2", closed)
	}
}
