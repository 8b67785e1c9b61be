package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/storage/memory"
)

type failingStore struct {
	*memory.Store
	err error
}

func (f failingStore) RecordTransaction(context.Context, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, f.err
}

func upsertMessage() *amqp.LedgerMessage {
	return amqp.NewTransactionUpserted(core.Transaction{
		ID: "tx-1", OwnerID: "u1", Kind: core.Income, Amount: core.Money{Cents: 10000},
		Category: "Salary", OccurredAt: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestMirrorAppliesUpsertAndDelete(t *testing.T) {
	replica := memory.New()
	var invalidated []string
	w := NewMirrorWorker(replica, nil, WithOnApplied(func(owner string) { invalidated = append(invalidated, owner) }))
	ctx := context.Background()

	if err := w.Handle(ctx, upsertMessage()); err != nil {
		t.Fatalf("Handle(upsert) error = %v", err)
	}
	recent, _ := replica.Recent(ctx, ports.RecentQuery{OwnerID: "u1", Limit: 10})
	if len(recent) != 1 || recent[0].ID != "tx-1" {
		t.Fatalf("replica = %+v", recent)
	}

	// Redelivery of the same upsert is idempotent.
	if err := w.Handle(ctx, upsertMessage()); err != nil {
		t.Fatalf("Handle(redelivered upsert) error = %v", err)
	}

	del := amqp.NewTransactionDeleted("u1", "tx-1")
	if err := w.Handle(ctx, del); err != nil {
		t.Fatalf("Handle(delete) error = %v", err)
	}
	if err := w.Handle(ctx, del); err != nil {
		t.Fatalf("Handle(redelivered delete) error = %v", err)
	}

	if applied, dropped := w.Stats(); applied != 4 || dropped != 0 {
		t.Errorf("Stats() = %d, %d; want 4, 0", applied, dropped)
	}
	if len(invalidated) != 4 || invalidated[0] != "u1" {
		t.Errorf("invalidated = %v", invalidated)
	}
}

func TestMirrorBudgetMessages(t *testing.T) {
	replica := memory.New()
	w := NewMirrorWorker(replica, nil)
	ctx := context.Background()

	msg := amqp.NewBudgetUpserted(core.Budget{ID: "b-1", OwnerID: "u1", Category: "Food", Month: "2024-09", Amount: core.Money{Cents: 50000}})
	if err := w.Handle(ctx, msg); err != nil {
		t.Fatalf("Handle(budget) error = %v", err)
	}
	budgets, _ := replica.BudgetsForMonth(ctx, "u1", "2024-09")
	if len(budgets) != 1 || budgets[0].Amount.Cents != 50000 {
		t.Fatalf("budgets = %+v", budgets)
	}
	if err := w.Handle(ctx, amqp.NewBudgetDeleted("u1", "b-1")); err != nil {
		t.Fatalf("Handle(budget delete) error = %v", err)
	}
}

func TestMirrorErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		store       Store
		msg         *amqp.LedgerMessage
		wantInvalid bool
	}{
		{
			name:        "invalid payload",
			store:       memory.New(),
			msg:         &amqp.LedgerMessage{Type: amqp.TransactionUpserted, OwnerID: "u1", Kind: "transfer"},
			wantInvalid: true,
		},
		{
			name:        "owner mismatch",
			store:       failingStore{Store: memory.New(), err: core.ErrNotFound},
			msg:         upsertMessage(),
			wantInvalid: true,
		},
		{
			name:        "read-only replica",
			store:       failingStore{Store: memory.New(), err: core.ErrReadOnlyBackend},
			msg:         upsertMessage(),
			wantInvalid: true,
		},
		{
			name:        "transient store failure",
			store:       failingStore{Store: memory.New(), err: errors.New("database is locked")},
			msg:         upsertMessage(),
			wantInvalid: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewMirrorWorker(tt.store, nil)
			err := w.Handle(context.Background(), tt.msg)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, amqp.ErrInvalidMessage); got != tt.wantInvalid {
				t.Errorf("invalid = %v, want %v (err %v)", got, tt.wantInvalid, err)
			}
		})
	}
}
