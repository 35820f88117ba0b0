package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"gestor/internal/core"
)

// FrequencyLimit caps the category frequency ranking.
const FrequencyLimit = 10

// CategoryFrequency counts expense records of one category.
type CategoryFrequency struct {
	Category  string
	Frequency int64
	Percent   decimal.Decimal
}

// Behavior holds the activity metrics of one window.
type Behavior struct {
	WindowDays int

	ExpenseCount int64
	IncomeCount  int64
	ExpenseTotal core.Money

	ActiveDays       int
	DaysWithExpenses int
	DaysWithIncome   int
	ActivityRatio    decimal.Decimal

	// Transactions per calendar day, both streams.
	DailyTransactions decimal.Decimal

	AveragePerTransaction decimal.Decimal
	// Expense total spread over calendar days, not active days.
	AveragePerActiveDay decimal.Decimal

	CategoryFrequency []CategoryFrequency
}

// TotalTransactions is the record count of both streams.
func (b Behavior) TotalTransactions() int64 {
	return b.ExpenseCount + b.IncomeCount
}

// ComputeBehavior derives activity metrics from records already fetched for
// window. It does not query any store.
func ComputeBehavior(window Window, expenses, incomes []core.Transaction) Behavior {
	b := Behavior{
		WindowDays:   window.Days(),
		ExpenseCount: int64(len(expenses)),
		IncomeCount:  int64(len(incomes)),
	}

	active := make(map[string]struct{})
	expenseDays := make(map[string]struct{})
	incomeDays := make(map[string]struct{})
	freq := make(map[string]int64)

	for _, tx := range expenses {
		d := GroupValue(GroupByDay, tx)
		active[d] = struct{}{}
		expenseDays[d] = struct{}{}
		freq[tx.Category]++
		b.ExpenseTotal = b.ExpenseTotal.Add(tx.Amount)
	}
	for _, tx := range incomes {
		d := GroupValue(GroupByDay, tx)
		active[d] = struct{}{}
		incomeDays[d] = struct{}{}
	}

	b.ActiveDays = len(active)
	b.DaysWithExpenses = len(expenseDays)
	b.DaysWithIncome = len(incomeDays)
	b.ActivityRatio = percentOf(decimal.NewFromInt(int64(b.ActiveDays)), decimal.NewFromInt(int64(b.WindowDays)))
	b.DailyTransactions = perDay(decimal.NewFromInt(b.TotalTransactions()), b.WindowDays)

	if b.ExpenseCount > 0 {
		b.AveragePerTransaction = b.ExpenseTotal.Decimal().Div(decimal.NewFromInt(b.ExpenseCount))
	}
	b.AveragePerActiveDay = perDay(b.ExpenseTotal.Decimal(), b.WindowDays)

	b.CategoryFrequency = rankFrequency(freq, b.ExpenseCount)
	return b
}

func rankFrequency(freq map[string]int64, total int64) []CategoryFrequency {
	out := make([]CategoryFrequency, 0, len(freq))
	for cat, n := range freq {
		out = append(out, CategoryFrequency{
			Category:  cat,
			Frequency: n,
			Percent:   percentOf(decimal.NewFromInt(n), decimal.NewFromInt(total)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > FrequencyLimit {
		out = out[:FrequencyLimit]
	}
	return out
}
