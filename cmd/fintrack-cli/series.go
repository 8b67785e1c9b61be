package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/identity"
	"fintrack/internal/report"

	"github.com/google/subcommands"
)

// seriesCmd prints income against expenses bucketed by month.
type seriesCmd struct {
	owner  string
	preset string
	period string
	year   int
	month  int
	asJSON bool
	raw    bool
}

func (*seriesCmd) Name() string     { return "series" }
func (*seriesCmd) Synopsis() string { return "compare income and expenses over a period" }
func (*seriesCmd) Usage() string {
	return `fintrack-cli series -owner <id> [-preset current-month|last-month|this-quarter|this-year] [-period month|quarter|year] [-year <yyyy>] [-month <m>] [-json|-raw]

  Displays monthly income and expense totals for the month, quarter or year
  containing the selected month. -preset overrides -period, -year and -month.
`
}

func (c *seriesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", os.Getenv("FINTRACK_OWNER"), "owner id (defaults to $FINTRACK_OWNER)")
	f.StringVar(&c.preset, "preset", "", "relative period: current-month, last-month, this-quarter or this-year")
	f.StringVar(&c.period, "period", string(core.MonthKind), "period kind: month, quarter or year")
	f.IntVar(&c.year, "year", 0, "year of the selected month")
	f.IntVar(&c.month, "month", 0, "selected month (1-12)")
	f.BoolVar(&c.asJSON, "json", false, "print the view as JSON")
	f.BoolVar(&c.raw, "raw", false, "print Markdown without terminal styling")
}

func (c *seriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner is required")
		return subcommands.ExitUsageError
	}
	kind, err := core.ParsePeriodKind(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	kind, year, month, err := selector(c.preset, kind, c.year, c.month, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, err := loadApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	svc, closeFn, err := a.dashboard(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening backend: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	view, err := svc.Comparison(ctx, identity.Identity{OwnerID: c.owner}, kind, year, month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building comparison: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := output(view, report.ComparisonMarkdown(view), c.asJSON, c.raw); err != nil {
		fmt.Fprintf(os.Stderr, "Error printing comparison: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
