package core

import (
	"fmt"
	"strings"
	"time"
)

// PeriodKind is the granularity of a dashboard window.
type PeriodKind string

const (
	MonthKind   PeriodKind = "month"
	QuarterKind PeriodKind = "quarter"
	YearKind    PeriodKind = "year"
)

// Period is a half-open interval [Start, End) with a display label.
//
// All periods are computed in UTC. Deployments in different time zones must
// agree on that single reference or month boundaries drift by the offset.
type Period struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
	Label string
}

// ParsePeriodKind accepts month, quarter or year.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch PeriodKind(strings.ToLower(strings.TrimSpace(s))) {
	case MonthKind:
		return MonthKind, nil
	case QuarterKind:
		return QuarterKind, nil
	case YearKind:
		return YearKind, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// MonthPeriod returns [first of month, first of next month).
// time.Date normalizes month 13 into January of the following year.
func MonthPeriod(year, month int) Period {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Kind:  MonthKind,
		Start: start,
		End:   start.AddDate(0, 1, 0),
		Label: start.Format("January 2006"),
	}
}

// QuarterOf returns the 1-based quarter containing month.
func QuarterOf(month int) int {
	return (month + 2) / 3
}

// QuarterPeriod returns the three-month window of quarter q (1-4).
func QuarterPeriod(year, quarter int) Period {
	start := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Kind:  QuarterKind,
		Start: start,
		End:   start.AddDate(0, 3, 0),
		Label: fmt.Sprintf("Q%d %d", quarter, year),
	}
}

// YearPeriod returns [Jan 1, Jan 1 of next year).
func YearPeriod(year int) Period {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Kind:  YearKind,
		Start: start,
		End:   start.AddDate(1, 0, 0),
		Label: fmt.Sprintf("%d", year),
	}
}

// ResolvePeriod maps a (kind, year, month) selector to its window.
// For quarters the month picks the quarter that contains it.
func ResolvePeriod(kind PeriodKind, year, month int) Period {
	switch kind {
	case QuarterKind:
		return QuarterPeriod(year, QuarterOf(month))
	case YearKind:
		return YearPeriod(year)
	default:
		return MonthPeriod(year, month)
	}
}

// Previous returns the immediately preceding period of the same kind.
func (p Period) Previous() Period {
	switch p.Kind {
	case QuarterKind:
		prev := p.Start.AddDate(0, -3, 0)
		return QuarterPeriod(prev.Year(), QuarterOf(int(prev.Month())))
	case YearKind:
		return YearPeriod(p.Start.Year() - 1)
	default:
		prev := p.Start.AddDate(0, -1, 0)
		return MonthPeriod(prev.Year(), int(prev.Month()))
	}
}

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// MonthKey is the "YYYY-MM" of the period start.
func (p Period) MonthKey() string {
	return MonthKey(p.Start.Year(), int(p.Start.Month()))
}

// Year and Month of the period start.
func (p Period) Year() int  { return p.Start.Year() }
func (p Period) Month() int { return int(p.Start.Month()) }

// Accepted range for year selectors.
const (
	MinYear = 2000
	MaxYear = 2100
)

// ValidateSelector checks a (year, month) selector before it reaches the
// resolver, which assumes validated integers.
func ValidateSelector(year, month int) error {
	if month < 1 || month > 12 {
		return Invalid("month", "must be between 1 and 12, got %d", month)
	}
	if year < MinYear || year > MaxYear {
		return Invalid("year", "must be between %d and %d, got %d", MinYear, MaxYear, year)
	}
	return nil
}

// Preset names a period relative to the current date.
type Preset string

const (
	CurrentMonth Preset = "current-month"
	LastMonth    Preset = "last-month"
	ThisQuarter  Preset = "this-quarter"
	ThisYear     Preset = "this-year"
)

// ParsePreset accepts current-month, last-month, this-quarter or this-year.
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(s))); p {
	case CurrentMonth, LastMonth, ThisQuarter, ThisYear:
		return p, nil
	default:
		return "", fmt.Errorf("unknown preset %q", s)
	}
}

// Resolve returns the window the preset names as seen from now. The
// period's Year and Month form a selector that ResolvePeriod maps back to
// the same window.
func (p Preset) Resolve(now time.Time) Period {
	now = now.UTC()
	year, month := now.Year(), int(now.Month())
	switch p {
	case LastMonth:
		return MonthPeriod(year, month).Previous()
	case ThisQuarter:
		return QuarterPeriod(year, QuarterOf(month))
	case ThisYear:
		return YearPeriod(year)
	default:
		return MonthPeriod(year, month)
	}
}
