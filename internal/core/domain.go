package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind tells income and expense ledger entries apart.
	Kind string

	// Transaction is one ledger entry. It belongs to exactly one owner.
	Transaction struct {
		ID          string
		OwnerID     string
		Kind        Kind
		Amount      Money
		Category    string
		Description string // optional
		OccurredAt  time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Budget is a monthly spending cap for one category.
	// OwnerID may be empty for the anonymous/dev tenant.
	Budget struct {
		ID          string
		OwnerID     string
		Category    string
		Amount      Money
		Month       string // YYYY-MM
		MonthStart  time.Time
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyOwner       = errors.New("empty owner")
	ErrInvalidMonth     = errors.New("month must be in YYYY-MM format")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrReadOnlyBackend  = errors.New("backend is read-only")
	ErrNotFound         = errors.New("not found")
	ErrDescriptionLimit = errors.New("description too long (max 200 characters)")
)

var monthPattern = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// DefaultDescription is shown when a transaction has no description.
func (k Kind) DefaultDescription() string {
	if k == Income {
		return "Income"
	}
	return "Expense"
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLimit
	}
	if t.OccurredAt.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if _, err := MonthStart(b.Month); err != nil {
		return err
	}
	if len(b.Description) > 200 {
		return ErrDescriptionLimit
	}
	return nil
}

// Normalize trims text fields and recomputes MonthStart from Month.
func (b Budget) Normalize() (Budget, error) {
	b.Category = strings.TrimSpace(b.Category)
	b.Description = strings.TrimSpace(b.Description)
	b.Month = strings.TrimSpace(b.Month)
	start, err := MonthStart(b.Month)
	if err != nil {
		return b, err
	}
	b.MonthStart = start
	return b, nil
}

// MonthStart returns the first instant (UTC) of a "YYYY-MM" month.
func MonthStart(month string) (time.Time, error) {
	m := monthPattern.FindStringSubmatch(strings.TrimSpace(month))
	if m == nil {
		return time.Time{}, ErrInvalidMonth
	}
	y, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return time.Date(y, time.Month(mm), 1, 0, 0, 0, 0, time.UTC), nil
}

// MonthKey formats a year and month as "YYYY-MM".
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
