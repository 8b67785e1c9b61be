// Package http exposes the dashboard over a JSON API.
//
// This file parses and validates query parameters. Every function returns a
// *core.ValidationError naming the offending field so handlers can reject the
// request before any store access.
package http

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// MonthParams holds the optional year/month selector. Zero means "not given".
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month. Missing values stay zero so the
// service can default them to the current month; present values must be
// integers in range.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	var p MonthParams
	var err error
	if p.Year, err = optionalInt(query, "year"); err != nil {
		return MonthParams{}, err
	}
	if p.Month, err = optionalInt(query, "month"); err != nil {
		return MonthParams{}, err
	}
	if query.Has("month") && (p.Month < 1 || p.Month > 12) {
		return MonthParams{}, core.Invalid("month", "must be between 1 and 12")
	}
	if query.Has("year") && (p.Year < core.MinYear || p.Year > core.MaxYear) {
		return MonthParams{}, core.Invalid("year", "must be between %d and %d", core.MinYear, core.MaxYear)
	}
	return p, nil
}

// ParsePeriodKind reads "period", falling back to the legacy "range" name.
// Both are validated when present; "period" wins when both are set.
// Absent means month.
func ParsePeriodKind(query url.Values) (core.PeriodKind, error) {
	kind := core.MonthKind
	for _, field := range []string{"range", "period"} {
		v := strings.TrimSpace(query.Get(field))
		if v == "" {
			continue
		}
		k, err := core.ParsePeriodKind(v)
		if err != nil {
			return "", core.Invalid(field, "must be month, quarter or year")
		}
		kind = k
	}
	return kind, nil
}

// ParseLimit reads "limit". Absent returns 0 so the default applies.
func ParseLimit(query url.Values) (int, error) {
	limit, err := optionalInt(query, "limit")
	if err != nil {
		return 0, err
	}
	if query.Has("limit") && (limit < 1 || limit > ports.MaxRecent) {
		return 0, core.Invalid("limit", "must be between 1 and %d", ports.MaxRecent)
	}
	return limit, nil
}

// ParseDateParam reads an ISO-8601 date ("2006-01-02") or RFC 3339 timestamp.
// A bare date used as an upper bound covers the whole day.
func ParseDateParam(query url.Values, field string, upperBound bool) (time.Time, error) {
	v := strings.TrimSpace(query.Get(field))
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		return time.Time{}, core.Invalid(field, "must be an ISO-8601 date")
	}
	if upperBound {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func optionalInt(query url.Values, field string) (int, error) {
	v := strings.TrimSpace(query.Get(field))
	if v == "" {
		if query.Has(field) {
			return 0, core.Invalid(field, "must not be empty")
		}
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Invalid(field, "must be an integer")
	}
	return n, nil
}
