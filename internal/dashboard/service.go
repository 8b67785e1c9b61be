// Package dashboard shapes aggregation results into the summary, comparison
// and recent-activity views.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/identity"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultRecentLimit applies when the caller gives no limit.
	DefaultRecentLimit = 8
	// SummaryRecentLimit caps the transactions embedded in a summary.
	SummaryRecentLimit = 10
)

// RecentFilter selects the recent-activity window. From and To are
// inclusive; zero values leave that side open.
type RecentFilter struct {
	Limit int
	From  time.Time
	To    time.Time
}

// Service is read-only; it never mutates the stores it is built from.
type Service struct {
	engine *aggregate.Engine
	ledger ports.LedgerReader
	cache  cache.Cache[SummaryView]
	now    func() time.Time
	logger *applog.Logger
}

type Option func(*Service)

// WithSummaryCache caches summary snapshots per owner and month.
func WithSummaryCache(c cache.Cache[SummaryView]) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(applog.ComponentDashboard) }
}

func New(engine *aggregate.Engine, ledger ports.LedgerReader, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		ledger: ledger,
		now:    time.Now,
		logger: applog.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentSelector returns the (year, month) of the service clock in UTC.
func (s *Service) CurrentSelector() (int, int) {
	now := s.now().UTC()
	return now.Year(), int(now.Month())
}

// Summary builds the snapshot of the month (year, month). Zero values select
// the current month.
func (s *Service) Summary(ctx context.Context, id identity.Identity, year, month int) (SummaryView, error) {
	if !id.Authenticated() {
		return SummaryView{}, core.ErrUnauthorized
	}
	year, month = s.defaults(year, month)
	if err := core.ValidateSelector(year, month); err != nil {
		return SummaryView{}, err
	}

	cacheKey := fmt.Sprintf("%s|%04d-%02d", id.OwnerID, year, month)
	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			return v, nil
		}
	}

	owner := id.OwnerID
	cur := core.MonthPeriod(year, month)
	prev := cur.Previous()

	var (
		curTotals, prevTotals aggregate.Totals
		breakdown             []aggregate.CategoryAmount
		budgets               []aggregate.BudgetUsage
		recent                []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		curTotals, err = s.engine.TotalsByType(gctx, owner, cur)
		return err
	})
	g.Go(func() (err error) {
		prevTotals, err = s.engine.TotalsByType(gctx, owner, prev)
		return err
	})
	g.Go(func() (err error) {
		breakdown, err = s.engine.CategoryBreakdown(gctx, owner, cur)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.engine.BudgetUtilization(gctx, owner, cur)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.ledger.Recent(gctx, ports.RecentQuery{
			OwnerID: owner,
			From:    cur.Start,
			To:      cur.End.Add(-time.Nanosecond),
			Limit:   SummaryRecentLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		s.logFailure(ctx, applog.OpSummary, owner, err)
		return SummaryView{}, fmt.Errorf("summary %s: %w", cur.MonthKey(), err)
	}

	tax, err := s.engine.EstimatedTaxDue(ctx, owner, curTotals.Income)
	if err != nil {
		s.logFailure(ctx, applog.OpSummary, owner, err)
		return SummaryView{}, fmt.Errorf("estimate tax: %w", err)
	}

	view := SummaryView{
		Period: periodView(cur),
		Cards: Cards{
			Income: Card{
				Amount:    core.Round2(curTotals.Income),
				ChangePct: core.Round2(aggregate.PercentChange(curTotals.Income, prevTotals.Income)),
			},
			Expenses: Card{
				Amount:    core.Round2(curTotals.Expense),
				ChangePct: core.Round2(aggregate.PercentChange(curTotals.Expense, prevTotals.Expense)),
			},
			EstimatedTaxDues: core.Round2(tax),
			SavingsRatePct:   core.Round2(aggregate.SavingsRate(curTotals)),
		},
		Breakdown:          Breakdown{ByCategory: make([]CategoryRow, 0, len(breakdown))},
		Budgets:            make([]BudgetRow, 0, len(budgets)),
		RecentTransactions: transactionViews(recent),
	}
	for _, c := range breakdown {
		view.Breakdown.ByCategory = append(view.Breakdown.ByCategory, CategoryRow{
			Category: c.Category,
			Amount:   core.Round2(c.Amount),
		})
	}
	for _, u := range budgets {
		view.Budgets = append(view.Budgets, budgetRow(u))
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, view)
	}
	s.logger.DebugContext(ctx, "Summary computed",
		applog.NewFields().WithOwner(owner).WithPeriod(string(cur.Kind), year, month).ToSlice()...)
	return view, nil
}

// Comparison returns income and expense series for the period of kind that
// contains (year, month).
func (s *Service) Comparison(ctx context.Context, id identity.Identity, kind core.PeriodKind, year, month int) (ComparisonView, error) {
	if !id.Authenticated() {
		return ComparisonView{}, core.ErrUnauthorized
	}
	if kind == "" {
		kind = core.MonthKind
	}
	if _, err := core.ParsePeriodKind(string(kind)); err != nil {
		return ComparisonView{}, core.Invalid("period", "must be month, quarter or year")
	}
	year, month = s.defaults(year, month)
	if err := core.ValidateSelector(year, month); err != nil {
		return ComparisonView{}, err
	}

	series, err := s.engine.TimeSeries(ctx, id.OwnerID, kind, year, month)
	if err != nil {
		s.logFailure(ctx, applog.OpSeries, id.OwnerID, err)
		return ComparisonView{}, err
	}
	return comparisonView(series), nil
}

// Recent lists the newest transactions of the caller, newest first.
func (s *Service) Recent(ctx context.Context, id identity.Identity, f RecentFilter) (RecentView, error) {
	if !id.Authenticated() {
		return RecentView{}, core.ErrUnauthorized
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return RecentView{}, core.Invalid("startDate", "must not be after endDate")
	}

	txs, err := s.ledger.Recent(ctx, ports.RecentQuery{
		OwnerID: id.OwnerID,
		From:    f.From,
		To:      f.To,
		Limit:   ports.ClampLimit(f.Limit, DefaultRecentLimit),
	})
	if err != nil {
		s.logFailure(ctx, applog.OpRecent, id.OwnerID, err)
		return RecentView{}, fmt.Errorf("recent transactions: %w", err)
	}
	return RecentView{Transactions: transactionViews(txs)}, nil
}

// InvalidateOwner drops every cached summary of owner. Writes carry no
// reliable previous month, so invalidation is owner-wide.
func (s *Service) InvalidateOwner(ownerID string) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(ownerID + "|")
}

func (s *Service) defaults(year, month int) (int, int) {
	cy, cm := s.CurrentSelector()
	if year == 0 {
		year = cy
	}
	if month == 0 {
		month = cm
	}
	return year, month
}

func (s *Service) logFailure(ctx context.Context, op, owner string, err error) {
	if _, ok := core.AsValidation(err); ok {
		return
	}
	errType := applog.ErrorTypeDatabase
	if errors.Is(err, context.DeadlineExceeded) {
		errType = applog.ErrorTypeTimeout
	}
	s.logger.ErrorContext(ctx, "Dashboard read failed",
		applog.NewFields().WithOwner(owner).WithOperation(op).WithError(err, errType).ToSlice()...)
}
