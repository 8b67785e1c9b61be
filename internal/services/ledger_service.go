package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// Publisher sends ledger change messages to the mirror queue.
type Publisher interface {
	Publish(ctx context.Context, msg *amqp.LedgerMessage) error
}

// Invalidator drops cached dashboard snapshots after a write.
type Invalidator interface {
	InvalidateOwner(ownerID string)
}

// LedgerService writes income, expense and budget changes to the primary
// store, then publishes them for mirrors. Publishing is best effort: a write
// that reached the store is never failed because the broker is down.
type LedgerService struct {
	ledger      ports.LedgerWriter
	budgets     ports.BudgetWriter
	publisher   Publisher
	invalidator Invalidator
	closers     []func() error
}

// Option configures a LedgerService.
type Option func(*LedgerService)

func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithInvalidator(i Invalidator) Option {
	return func(s *LedgerService) { s.invalidator = i }
}

// WithCloser registers a resource released by Close.
func WithCloser(fn func() error) Option {
	return func(s *LedgerService) {
		if fn != nil {
			s.closers = append(s.closers, fn)
		}
	}
}

func NewLedgerService(ledger ports.LedgerWriter, budgets ports.BudgetWriter, opts ...Option) *LedgerService {
	s := &LedgerService{ledger: ledger, budgets: budgets}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordTransaction saves tx and publishes a transaction.upserted message.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.ledger.RecordTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateOwner(saved.OwnerID)
	}
	s.publish(ctx, amqp.NewTransactionUpserted(saved))
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	if err := s.ledger.DeleteTransaction(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateOwner(ownerID)
	}
	s.publish(ctx, amqp.NewTransactionDeleted(ownerID, id))
	return nil
}

func (s *LedgerService) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	saved, err := s.budgets.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateOwner(saved.OwnerID)
	}
	s.publish(ctx, amqp.NewBudgetUpserted(saved))
	return saved, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, ownerID, id string) error {
	if err := s.budgets.DeleteBudget(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateOwner(ownerID)
	}
	s.publish(ctx, amqp.NewBudgetDeleted(ownerID, id))
	return nil
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping mirror message", "message_type", msg.Type)
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger message",
			"message_type", msg.Type,
			"message_id", msg.ID,
			"error", err)
	}
}

// Close releases every registered resource.
func (s *LedgerService) Close() error {
	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
