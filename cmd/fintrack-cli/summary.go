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

// summaryCmd prints the monthly dashboard snapshot.
type summaryCmd struct {
	owner  string
	preset string
	year   int
	month  int
	asJSON bool
	raw    bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the monthly dashboard summary" }
func (*summaryCmd) Usage() string {
	return `fintrack-cli summary -owner <id> [-preset current-month|last-month] [-year <yyyy>] [-month <m>] [-json|-raw]

  Displays income, expenses, estimated taxes, savings rate, spending by
  category, budget usage and recent transactions for one month. Year and
  month default to the current UTC month; -preset overrides them.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", os.Getenv("FINTRACK_OWNER"), "owner id (defaults to $FINTRACK_OWNER)")
	f.StringVar(&c.preset, "preset", "", "relative month: current-month or last-month")
	f.IntVar(&c.year, "year", 0, "year of the month to report")
	f.IntVar(&c.month, "month", 0, "month to report (1-12)")
	f.BoolVar(&c.asJSON, "json", false, "print the view as JSON")
	f.BoolVar(&c.raw, "raw", false, "print Markdown without terminal styling")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner is required")
		return subcommands.ExitUsageError
	}
	kind, year, month, err := selector(c.preset, core.MonthKind, c.year, c.month, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if kind != core.MonthKind {
		fmt.Fprintf(os.Stderr, "Error: summary covers one month; use series for -preset %s\n", c.preset)
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

	view, err := svc.Summary(ctx, identity.Identity{OwnerID: c.owner}, year, month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building summary: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := output(view, report.SummaryMarkdown(view), c.asJSON, c.raw); err != nil {
		fmt.Fprintf(os.Stderr, "Error printing summary: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
