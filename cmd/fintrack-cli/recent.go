package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fintrack/internal/dashboard"
	"fintrack/internal/identity"
	"fintrack/internal/report"

	"github.com/google/subcommands"
)

// recentCmd lists the newest transactions.
type recentCmd struct {
	owner  string
	limit  int
	from   string
	to     string
	asJSON bool
	raw    bool
}

func (*recentCmd) Name() string     { return "recent" }
func (*recentCmd) Synopsis() string { return "list recent transactions" }
func (*recentCmd) Usage() string {
	return `fintrack-cli recent -owner <id> [-limit <n>] [-from <yyyy-mm-dd>] [-to <yyyy-mm-dd>] [-json|-raw]

  Lists transactions newest first. Both date bounds are inclusive.
`
}

func (c *recentCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", os.Getenv("FINTRACK_OWNER"), "owner id (defaults to $FINTRACK_OWNER)")
	f.IntVar(&c.limit, "limit", 0, "maximum number of transactions (0 uses the default)")
	f.StringVar(&c.from, "from", "", "earliest date to include")
	f.StringVar(&c.to, "to", "", "latest date to include")
	f.BoolVar(&c.asJSON, "json", false, "print the view as JSON")
	f.BoolVar(&c.raw, "raw", false, "print Markdown without terminal styling")
}

func (c *recentCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.owner == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner is required")
		return subcommands.ExitUsageError
	}
	filter := dashboard.RecentFilter{Limit: c.limit}
	var err error
	if filter.From, err = parseDay(c.from, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -from: %v\n", err)
		return subcommands.ExitUsageError
	}
	if filter.To, err = parseDay(c.to, true); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -to: %v\n", err)
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

	view, err := svc.Recent(ctx, identity.Identity{OwnerID: c.owner}, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing transactions: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := output(view, report.RecentMarkdown(view), c.asJSON, c.raw); err != nil {
		fmt.Fprintf(os.Stderr, "Error printing transactions: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// parseDay reads a YYYY-MM-DD date in UTC. An upper bound covers the whole
// day. An empty string is the zero time.
func parseDay(s string, upperBound bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	if upperBound {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
