package dashboard

import (
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

// Views returned to HTTP and CLI callers. Money is rounded to two decimals
// here and nowhere earlier.
type (
	PeriodView struct {
		Kind     core.PeriodKind `json:"kind"`
		Year     int             `json:"year"`
		Month    int             `json:"month"`
		MonthStr string          `json:"monthStr"`
		Label    string          `json:"label"`
		Start    time.Time       `json:"start"`
		End      time.Time       `json:"end"`
	}

	Card struct {
		Amount    float64 `json:"amount"`
		ChangePct float64 `json:"changePct"`
	}

	Cards struct {
		Income           Card    `json:"income"`
		Expenses         Card    `json:"expenses"`
		EstimatedTaxDues float64 `json:"estimatedTaxDues"`
		SavingsRatePct   float64 `json:"savingsRatePct"`
	}

	CategoryRow struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
	}

	Breakdown struct {
		ByCategory []CategoryRow `json:"byCategory"`
	}

	BudgetRow struct {
		ID          string    `json:"id"`
		OwnerID     string    `json:"userId,omitempty"`
		Category    string    `json:"category"`
		Amount      float64   `json:"amount"`
		Month       string    `json:"month"`
		MonthStart  time.Time `json:"monthStart"`
		Description string    `json:"description"`
		Spent       float64   `json:"spent"`
		Remaining   float64   `json:"remaining"`
		UsedPct     float64   `json:"usedPct"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	TransactionView struct {
		ID          string    `json:"id"`
		OwnerID     string    `json:"userId"`
		Type        core.Kind `json:"type"`
		Category    string    `json:"category"`
		Amount      float64   `json:"amount"`
		Date        time.Time `json:"date"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// SummaryView is the dashboard snapshot of one month.
	SummaryView struct {
		Period             PeriodView        `json:"period"`
		Cards              Cards             `json:"cards"`
		Breakdown          Breakdown         `json:"breakdown"`
		Budgets            []BudgetRow       `json:"budgets"`
		RecentTransactions []TransactionView `json:"recentTransactions"`
	}

	SeriesView struct {
		Label string    `json:"label"`
		Data  []float64 `json:"data"`
	}

	// ComparisonView holds income and expense series on a shared label axis.
	ComparisonView struct {
		Labels []string        `json:"labels"`
		Series []SeriesView    `json:"series"`
		Period core.PeriodKind `json:"period"`
	}

	RecentView struct {
		Transactions []TransactionView `json:"transactions"`
	}
)

const (
	SeriesIncome   = "Income"
	SeriesExpenses = "Expenses"

	defaultCategory = "General"
)

func periodView(p core.Period) PeriodView {
	return PeriodView{
		Kind:     p.Kind,
		Year:     p.Year(),
		Month:    p.Month(),
		MonthStr: p.MonthKey(),
		Label:    p.Label,
		Start:    p.Start,
		End:      p.End,
	}
}

func transactionView(tx core.Transaction) TransactionView {
	desc := tx.Description
	if desc == "" {
		desc = tx.Kind.DefaultDescription()
	}
	cat := tx.Category
	if cat == "" {
		cat = defaultCategory
	}
	return TransactionView{
		ID:          tx.ID,
		OwnerID:     tx.OwnerID,
		Type:        tx.Kind,
		Category:    cat,
		Amount:      core.Round2(tx.Amount.Decimal()),
		Date:        tx.OccurredAt.UTC(),
		Description: desc,
		CreatedAt:   tx.CreatedAt.UTC(),
		UpdatedAt:   tx.UpdatedAt.UTC(),
	}
}

func transactionViews(txs []core.Transaction) []TransactionView {
	out := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionView(tx))
	}
	return out
}

func budgetRow(u aggregate.BudgetUsage) BudgetRow {
	b := u.Budget
	return BudgetRow{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Category:    b.Category,
		Amount:      core.Round2(u.Cap),
		Month:       b.Month,
		MonthStart:  b.MonthStart,
		Description: b.Description,
		Spent:       core.Round2(u.Spent),
		Remaining:   core.Round2(u.Remaining),
		UsedPct:     core.Round2(u.UsedPct),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func comparisonView(s aggregate.Series) ComparisonView {
	labels := make([]string, len(s.Buckets))
	income := make([]float64, len(s.Buckets))
	expense := make([]float64, len(s.Buckets))
	for i, b := range s.Buckets {
		labels[i] = b.Label
		income[i] = core.Round2(b.Income)
		expense[i] = core.Round2(b.Expense)
	}
	return ComparisonView{
		Labels: labels,
		Series: []SeriesView{
			{Label: SeriesIncome, Data: income},
			{Label: SeriesExpenses, Data: expense},
		},
		Period: s.Period.Kind,
	}
}
