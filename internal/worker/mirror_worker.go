package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"
)

// Store is the replica a MirrorWorker writes to.
type Store interface {
	ports.LedgerWriter
	ports.BudgetWriter
}

// MirrorWorker applies ledger messages to a replica store.
type MirrorWorker struct {
	store     Store
	logger    *applog.Logger
	onApplied func(ownerID string)

	applied atomic.Int64
	dropped atomic.Int64
}

// Option configures a MirrorWorker.
type Option func(*MirrorWorker)

// WithOnApplied registers a callback run after each applied message, used
// to invalidate cached dashboards of the owner.
func WithOnApplied(fn func(ownerID string)) Option {
	return func(w *MirrorWorker) { w.onApplied = fn }
}

func NewMirrorWorker(store Store, logger *applog.Logger, opts ...Option) *MirrorWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	w := &MirrorWorker{store: store, logger: logger.WithComponent(applog.ComponentWorker)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle applies msg. Errors wrapping amqp.ErrInvalidMessage can never
// succeed; any other error is worth retrying.
func (w *MirrorWorker) Handle(ctx context.Context, msg *amqp.LedgerMessage) error {
	err := w.apply(ctx, msg)
	if err != nil {
		if errors.Is(err, amqp.ErrInvalidMessage) {
			w.dropped.Add(1)
		}
		fields := applog.NewFields().
			WithOperation(applog.OpMirror).
			WithOwner(msg.OwnerID).
			WithError(err, errorType(err))
		w.logger.ErrorContext(ctx, "Failed to mirror ledger message",
			append(fields.ToSlice(),
				applog.FieldMessageTyp, msg.Type,
				applog.FieldMessageID, msg.ID)...)
		return err
	}

	w.applied.Add(1)
	if w.onApplied != nil {
		w.onApplied(msg.OwnerID)
	}
	w.logger.DebugContext(ctx, "Mirrored ledger message",
		applog.FieldMessageTyp, msg.Type,
		applog.FieldMessageID, msg.ID,
		applog.FieldOwnerID, msg.OwnerID)
	return nil
}

func (w *MirrorWorker) apply(ctx context.Context, msg *amqp.LedgerMessage) error {
	switch msg.Type {
	case amqp.TransactionUpserted:
		tx, err := msg.Transaction()
		if err != nil {
			return err
		}
		_, err = w.store.RecordTransaction(ctx, tx)
		return classify(err)
	case amqp.TransactionDeleted:
		return ignoreMissing(w.store.DeleteTransaction(ctx, msg.OwnerID, msg.ID))
	case amqp.BudgetUpserted:
		b, err := msg.Budget()
		if err != nil {
			return err
		}
		_, err = w.store.UpsertBudget(ctx, b)
		return classify(err)
	case amqp.BudgetDeleted:
		return ignoreMissing(w.store.DeleteBudget(ctx, msg.OwnerID, msg.ID))
	default:
		return fmt.Errorf("%w: unknown type %q", amqp.ErrInvalidMessage, msg.Type)
	}
}

// classify marks store errors that retrying cannot fix.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := core.AsValidation(err); ok {
		return fmt.Errorf("%w: %v", amqp.ErrInvalidMessage, err)
	}
	for _, permanent := range []error{
		core.ErrNotFound, core.ErrReadOnlyBackend, core.ErrInvalidAmount, core.ErrInvalidKind,
		core.ErrEmptyCategory, core.ErrEmptyOwner, core.ErrInvalidMonth, core.ErrZeroDate,
		core.ErrDescriptionLimit,
	} {
		if errors.Is(err, permanent) {
			return fmt.Errorf("%w: %v", amqp.ErrInvalidMessage, err)
		}
	}
	return err
}

// ignoreMissing makes deletes idempotent across redeliveries.
func ignoreMissing(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	return classify(err)
}

func errorType(err error) string {
	if errors.Is(err, amqp.ErrInvalidMessage) {
		return applog.ErrorTypeValidation
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return applog.ErrorTypeTimeout
	}
	return applog.ErrorTypeDatabase
}

// Stats reports applied and dropped message counts.
func (w *MirrorWorker) Stats() (applied, dropped int64) {
	return w.applied.Load(), w.dropped.Load()
}
