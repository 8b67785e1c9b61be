package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// MessageType names a ledger change.
type MessageType string

const (
	TransactionUpserted MessageType = "transaction.upserted"
	TransactionDeleted  MessageType = "transaction.deleted"
	BudgetUpserted      MessageType = "budget.upserted"
	BudgetDeleted       MessageType = "budget.deleted"
)

// ErrInvalidMessage marks payloads that can never be applied. Consumers drop
// them instead of requeueing.
var ErrInvalidMessage = errors.New("invalid ledger message")

// LedgerMessage mirrors one ledger or budget change.
type LedgerMessage struct {
	Type        MessageType     `json:"type"`
	OwnerID     string          `json:"ownerId"`
	ID          string          `json:"id"`
	Kind        string          `json:"kind,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt,omitempty"`
	Month       string          `json:"month,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

func NewTransactionUpserted(tx core.Transaction) *LedgerMessage {
	return &LedgerMessage{
		Type:        TransactionUpserted,
		OwnerID:     tx.OwnerID,
		ID:          tx.ID,
		Kind:        string(tx.Kind),
		Amount:      tx.Amount.Decimal(),
		Category:    tx.Category,
		Description: tx.Description,
		OccurredAt:  tx.OccurredAt.UTC(),
		Timestamp:   time.Now().UTC(),
	}
}

func NewTransactionDeleted(ownerID, id string) *LedgerMessage {
	return &LedgerMessage{Type: TransactionDeleted, OwnerID: ownerID, ID: id, Timestamp: time.Now().UTC()}
}

func NewBudgetUpserted(b core.Budget) *LedgerMessage {
	return &LedgerMessage{
		Type:        BudgetUpserted,
		OwnerID:     b.OwnerID,
		ID:          b.ID,
		Amount:      b.Amount.Decimal(),
		Category:    b.Category,
		Description: b.Description,
		Month:       b.Month,
		Timestamp:   time.Now().UTC(),
	}
}

func NewBudgetDeleted(ownerID, id string) *LedgerMessage {
	return &LedgerMessage{Type: BudgetDeleted, OwnerID: ownerID, ID: id, Timestamp: time.Now().UTC()}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerMessageFromJSON decodes and checks the envelope of a message.
func LedgerMessageFromJSON(data []byte) (*LedgerMessage, error) {
	var msg LedgerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch msg.Type {
	case TransactionUpserted, BudgetUpserted:
	case TransactionDeleted, BudgetDeleted:
		if strings.TrimSpace(msg.ID) == "" {
			return nil, fmt.Errorf("%w: delete without id", ErrInvalidMessage)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
	return &msg, nil
}

// Transaction rebuilds the transaction of an upsert message, applying the
// same validation as direct writes.
func (m *LedgerMessage) Transaction() (core.Transaction, error) {
	kind, err := core.ParseKind(m.Kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	amount, err := moneyOf(m.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          strings.TrimSpace(m.ID),
		OwnerID:     strings.TrimSpace(m.OwnerID),
		Kind:        kind,
		Amount:      amount,
		Category:    strings.TrimSpace(m.Category),
		Description: strings.TrimSpace(m.Description),
		OccurredAt:  m.OccurredAt.UTC(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return tx, nil
}

// Budget rebuilds the budget of an upsert message.
func (m *LedgerMessage) Budget() (core.Budget, error) {
	amount, err := moneyOf(m.Amount)
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{
		ID:          strings.TrimSpace(m.ID),
		OwnerID:     strings.TrimSpace(m.OwnerID),
		Category:    m.Category,
		Amount:      amount,
		Month:       m.Month,
		Description: m.Description,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return b, nil
}

func moneyOf(d decimal.Decimal) (core.Money, error) {
	if d.IsNegative() || d.GreaterThan(decimal.New(1, 15)) {
		return core.Money{}, fmt.Errorf("%w: %v", ErrInvalidMessage, core.ErrInvalidAmount)
	}
	return core.MoneyFromDecimal(d), nil
}
