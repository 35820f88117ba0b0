package sheets

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gestor/internal/services"
	"gestor/internal/stats"
)

// ReportWriter stores exported report rows. Writing the same row key twice
// updates the earlier row.
type ReportWriter interface {
	UpsertSummary(ctx context.Context, row SummaryRow) (rowRef string, err error)
}

// Header is the first row of every export sheet.
var Header = []any{
	"Key", "Owner", "Wallet", "Period", "Start", "End",
	"Income", "Expense", "Balance", "Savings rate %", "Expense/income %", "Exported at",
}

// SummaryRow is one summary report flattened for a spreadsheet.
type SummaryRow struct {
	Owner              string
	Wallet             string
	Period             string
	Start              time.Time
	End                time.Time
	Income             string
	Expense            string
	Balance            string
	SavingsRate        string
	ExpenseIncomeRatio string
	ExportedAt         time.Time
}

// NewSummaryRow flattens s. Amounts keep two decimals.
func NewSummaryRow(owner, wallet string, s services.Summary, exportedAt time.Time) SummaryRow {
	return SummaryRow{
		Owner:              owner,
		Wallet:             wallet,
		Period:             string(s.Window.Kind),
		Start:              s.Window.Start,
		End:                s.Window.End,
		Income:             s.Income.Total.String(),
		Expense:            s.Expense.Total.String(),
		Balance:            s.Balance.Total.String(),
		SavingsRate:        s.SavingsRate.StringFixed(2),
		ExpenseIncomeRatio: s.ExpenseIncomeRatio.StringFixed(2),
		ExportedAt:         exportedAt.UTC(),
	}
}

// Key identifies the report a row belongs to, independent of when it was
// exported.
func (r SummaryRow) Key() string {
	wallet := r.Wallet
	if wallet == "" {
		wallet = "-"
	}
	return strings.Join([]string{r.Owner, wallet, r.Period, r.Start.Format(stats.DayLayout)}, "|")
}

// Values renders the row in Header order.
func (r SummaryRow) Values() []any {
	return []any{
		r.Key(),
		r.Owner,
		r.Wallet,
		r.Period,
		r.Start.Format(stats.DayLayout),
		r.End.Format(stats.DayLayout),
		r.Income,
		r.Expense,
		r.Balance,
		r.SavingsRate,
		r.ExpenseIncomeRatio,
		r.ExportedAt.Format(time.RFC3339),
	}
}

// Year is the calendar year the row is filed under.
func (r SummaryRow) Year() string {
	return strconv.Itoa(r.Start.Year())
}
