// Package report renders dashboard views as Markdown for terminal output.
package report

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/dashboard"
)

// SummaryMarkdown renders the monthly dashboard snapshot.
func SummaryMarkdown(v dashboard.SummaryView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Dashboard %s\n\n", v.Period.Label)

	b.WriteString("| | Amount | Change |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| Income | %s | %s |\n", money(v.Cards.Income.Amount), pct(v.Cards.Income.ChangePct, true))
	fmt.Fprintf(&b, "| Expenses | %s | %s |\n", money(v.Cards.Expenses.Amount), pct(v.Cards.Expenses.ChangePct, true))
	fmt.Fprintf(&b, "| Estimated tax | %s | |\n", money(v.Cards.EstimatedTaxDues))
	fmt.Fprintf(&b, "| Savings rate | %s | |\n\n", pct(v.Cards.SavingsRatePct, false))

	b.WriteString("## Spending by category\n\n")
	if len(v.Breakdown.ByCategory) == 0 {
		b.WriteString("_No expenses this month._\n\n")
	} else {
		b.WriteString("| Category | Amount |\n|---|---:|\n")
		for _, row := range v.Breakdown.ByCategory {
			fmt.Fprintf(&b, "| %s | %s |\n", cell(row.Category), money(row.Amount))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Budgets\n\n")
	if len(v.Budgets) == 0 {
		b.WriteString("_No budgets set._\n\n")
	} else {
		b.WriteString("| Category | Budget | Spent | Remaining | Used |\n|---|---:|---:|---:|---:|\n")
		for _, row := range v.Budgets {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(row.Category), money(row.Amount), money(row.Spent), money(row.Remaining), pct(row.UsedPct, false))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recent transactions\n\n")
	b.WriteString(transactionsTable(v.RecentTransactions))
	return b.String()
}

// ComparisonMarkdown renders income against expenses per bucket.
func ComparisonMarkdown(v dashboard.ComparisonView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Income vs expenses (%s)\n\n", v.Period)

	income := seriesData(v, dashboard.SeriesIncome)
	expenses := seriesData(v, dashboard.SeriesExpenses)

	b.WriteString("| Period | Income | Expenses | Net |\n|---|---:|---:|---:|\n")
	var totalIn, totalOut float64
	for i, label := range v.Labels {
		in, out := at(income, i), at(expenses, i)
		totalIn += in
		totalOut += out
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", label, money(in), money(out), money(in-out))
	}
	fmt.Fprintf(&b, "| **Total** | **%s** | **%s** | **%s** |\n", money(totalIn), money(totalOut), money(totalIn-totalOut))
	return b.String()
}

// RecentMarkdown renders a recent-activity list.
func RecentMarkdown(v dashboard.RecentView) string {
	return "# Recent transactions\n\n" + transactionsTable(v.Transactions)
}

func transactionsTable(txs []dashboard.TransactionView) string {
	if len(txs) == 0 {
		return "_No transactions._\n"
	}
	var b strings.Builder
	b.WriteString("| Date | Type | Category | Description | Amount |\n|---|---|---|---|---:|\n")
	for _, tx := range txs {
		amount := money(tx.Amount)
		if tx.Type == core.Expense {
			amount = "-" + amount
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			tx.Date.UTC().Format(time.DateOnly), tx.Type, cell(tx.Category), cell(tx.Description), amount)
	}
	return b.String()
}

func seriesData(v dashboard.ComparisonView, label string) []float64 {
	for _, s := range v.Series {
		if s.Label == label {
			return s.Data
		}
	}
	return nil
}

func at(data []float64, i int) float64 {
	if i < len(data) {
		return data[i]
	}
	return 0
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func pct(v float64, signed bool) string {
	if signed {
		return fmt.Sprintf("%+.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// cell keeps user text from breaking the table layout.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
