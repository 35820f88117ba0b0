package http

import (
	"time"

	"github.com/shopspring/decimal"

	"gestor/internal/core"
	"gestor/internal/services"
	"gestor/internal/stats"
)

// JSON views of the report types. Money is rendered as a number with two
// decimals, ratios are rounded to two decimals.

type windowView struct {
	Period stats.PeriodKind `json:"period"`
	Start  time.Time        `json:"start"`
	End    time.Time        `json:"end"`
	Days   int              `json:"days"`
}

type streamSummaryView struct {
	Total        float64 `json:"total"`
	Count        int64   `json:"count"`
	DailyAverage float64 `json:"dailyAverage"`
}

type balanceView struct {
	Total        float64 `json:"total"`
	DailyAverage float64 `json:"dailyAverage"`
}

type summaryView struct {
	Window             windowView        `json:"window"`
	Income             streamSummaryView `json:"income"`
	Expense            streamSummaryView `json:"expense"`
	Balance            balanceView       `json:"balance"`
	SavingsRate        float64           `json:"savingsRate"`
	ExpenseIncomeRatio float64           `json:"expenseIncomeRatio"`
}

type aggregateView struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

type periodView struct {
	Window  windowView    `json:"window"`
	Income  aggregateView `json:"income"`
	Expense aggregateView `json:"expense"`
	Balance float64       `json:"balance"`
}

type deltaView struct {
	Absolute  float64         `json:"absolute"`
	Percent   float64         `json:"percent"`
	Direction stats.Direction `json:"direction"`
}

type comparisonView struct {
	Income  deltaView `json:"income"`
	Expense deltaView `json:"expense"`
	Balance deltaView `json:"balance"`
}

type seriesPointView struct {
	Date    string  `json:"date"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

type trendsView struct {
	Current    periodView        `json:"current"`
	Previous   periodView        `json:"previous"`
	Comparison comparisonView    `json:"comparison"`
	Series     []seriesPointView `json:"series"`
}

type categoryView struct {
	Category string                 `json:"category"`
	Amount   float64                `json:"amount"`
	Count    int64                  `json:"count"`
	Percent  float64                `json:"percent"`
	Average  float64                `json:"average"`
	Trend    services.CategoryTrend `json:"trend"`
}

type breakdownView struct {
	Total      float64        `json:"total"`
	Count      int64          `json:"count"`
	Categories []categoryView `json:"categories"`
}

type categoriesView struct {
	Window   windowView     `json:"window"`
	Limit    int            `json:"limit"`
	Expenses *breakdownView `json:"expenses,omitempty"`
	Income   *breakdownView `json:"income,omitempty"`
}

type frequencyView struct {
	Category  string  `json:"category"`
	Frequency int64   `json:"frequency"`
	Percent   float64 `json:"percent"`
}

type behaviorView struct {
	Window       windowView `json:"window"`
	Transactions struct {
		Total        int64   `json:"total"`
		Income       int64   `json:"income"`
		Expenses     int64   `json:"expenses"`
		DailyAverage float64 `json:"dailyAverage"`
	} `json:"transactions"`
	AverageExpense struct {
		PerTransaction float64 `json:"perTransaction"`
		PerDay         float64 `json:"perDay"`
	} `json:"averageExpense"`
	ActiveDays struct {
		Total         int     `json:"total"`
		WithExpenses  int     `json:"withExpenses"`
		WithIncome    int     `json:"withIncome"`
		ActivityRatio float64 `json:"activityRatio"`
	} `json:"activeDays"`
	CategoryFrequency []frequencyView `json:"categoryFrequency"`
}

func money(m core.Money) float64 {
	return m.Decimal().InexactFloat64()
}

func ratio(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func newWindowView(w stats.Window) windowView {
	return windowView{Period: w.Kind, Start: w.Start, End: w.End, Days: w.Days()}
}

func newSummaryView(s services.Summary) summaryView {
	return summaryView{
		Window:  newWindowView(s.Window),
		Income:  newStreamSummaryView(s.Income),
		Expense: newStreamSummaryView(s.Expense),
		Balance: balanceView{
			Total:        money(s.Balance.Total),
			DailyAverage: ratio(s.Balance.DailyAverage),
		},
		SavingsRate:        ratio(s.SavingsRate),
		ExpenseIncomeRatio: ratio(s.ExpenseIncomeRatio),
	}
}

func newStreamSummaryView(s services.StreamSummary) streamSummaryView {
	return streamSummaryView{Total: money(s.Total), Count: s.Count, DailyAverage: ratio(s.DailyAverage)}
}

func newPeriodView(p services.PeriodTotals) periodView {
	return periodView{
		Window:  newWindowView(p.Window),
		Income:  aggregateView{Total: money(p.Income.Total), Count: p.Income.Count},
		Expense: aggregateView{Total: money(p.Expense.Total), Count: p.Expense.Count},
		Balance: money(p.Balance.Total),
	}
}

func newDeltaView(d stats.Delta) deltaView {
	return deltaView{Absolute: money(d.Absolute), Percent: ratio(d.Percent), Direction: d.Direction}
}

func newTrendsView(t services.Trends) trendsView {
	out := trendsView{
		Current:  newPeriodView(t.Current),
		Previous: newPeriodView(t.Previous),
		Comparison: comparisonView{
			Income:  newDeltaView(t.Income),
			Expense: newDeltaView(t.Expense),
			Balance: newDeltaView(t.Balance),
		},
		Series: make([]seriesPointView, 0, len(t.Series)),
	}
	for _, p := range t.Series {
		out.Series = append(out.Series, seriesPointView{Date: p.Date, Income: money(p.Income), Expense: money(p.Expense)})
	}
	return out
}

func newBreakdownView(b *services.StreamBreakdown) *breakdownView {
	if b == nil {
		return nil
	}
	out := &breakdownView{
		Total:      money(b.Total),
		Count:      b.Count,
		Categories: make([]categoryView, 0, len(b.Categories)),
	}
	for _, c := range b.Categories {
		out.Categories = append(out.Categories, categoryView{
			Category: c.Category,
			Amount:   money(c.Amount),
			Count:    c.Count,
			Percent:  ratio(c.Percent),
			Average:  ratio(c.Average),
			Trend:    c.Trend,
		})
	}
	return out
}

func newCategoriesView(c services.CategoryBreakdown) categoriesView {
	return categoriesView{
		Window:   newWindowView(c.Window),
		Limit:    c.Limit,
		Expenses: newBreakdownView(c.Expense),
		Income:   newBreakdownView(c.Income),
	}
}

func newBehaviorView(b services.BehaviorReport) behaviorView {
	var out behaviorView
	out.Window = newWindowView(b.Window)

	out.Transactions.Total = b.TotalTransactions()
	out.Transactions.Income = b.IncomeCount
	out.Transactions.Expenses = b.ExpenseCount
	out.Transactions.DailyAverage = ratio(b.DailyTransactions)

	out.AverageExpense.PerTransaction = ratio(b.AveragePerTransaction)
	out.AverageExpense.PerDay = ratio(b.AveragePerActiveDay)

	out.ActiveDays.Total = b.ActiveDays
	out.ActiveDays.WithExpenses = b.DaysWithExpenses
	out.ActiveDays.WithIncome = b.DaysWithIncome
	out.ActiveDays.ActivityRatio = ratio(b.ActivityRatio)

	out.CategoryFrequency = make([]frequencyView, 0, len(b.CategoryFrequency))
	for _, f := range b.CategoryFrequency {
		out.CategoryFrequency = append(out.CategoryFrequency, frequencyView{
			Category:  f.Category,
			Frequency: f.Frequency,
			Percent:   ratio(f.Percent),
		})
	}
	return out
}
