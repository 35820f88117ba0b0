package stats

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gestor/internal/core"
)

// DefaultCategoryLimit is used when the caller does not pass a limit.
const DefaultCategoryLimit = 10

var hundred = decimal.NewFromInt(100)

// Totals holds the aggregate of both streams over one scope.
type Totals struct {
	Expense AggregateResult
	Income  AggregateResult
}

// Balance is income minus expense.
func (t Totals) Balance() AggregateResult {
	return AggregateResult{
		Total: t.Income.Total.Sub(t.Expense.Total),
		Count: t.Income.Count + t.Expense.Count,
	}
}

// CategoryAggregate is one ranked category of a stream. Percent is relative
// to the full stream total, before truncation.
type CategoryAggregate struct {
	Category string
	Amount   core.Money
	Count    int64
	Percent  decimal.Decimal
}

// Average is the mean amount per record of the category.
func (c CategoryAggregate) Average() decimal.Decimal {
	if c.Count == 0 {
		return decimal.Zero
	}
	return c.Amount.Decimal().Div(decimal.NewFromInt(c.Count))
}

// SeriesPoint is one bucket of a time series.
type SeriesPoint struct {
	Date    string
	Income  core.Money
	Expense core.Money
}

// AggregateTotals sums and counts both streams concurrently. Either failure
// fails the whole call.
func AggregateTotals(ctx context.Context, store RecordStore, scope Scope) (Totals, error) {
	var out Totals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := store.Totals(gctx, core.StreamExpense, scope)
		if err != nil {
			return DependencyFailure("aggregate expense totals", err)
		}
		out.Expense = r
		return nil
	})
	g.Go(func() error {
		r, err := store.Totals(gctx, core.StreamIncome, scope)
		if err != nil {
			return DependencyFailure("aggregate income totals", err)
		}
		out.Income = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return Totals{}, err
	}
	return out, nil
}

// AggregateByCategory ranks the categories of stream by amount and keeps
// the first limit entries. Category strings are compared verbatim.
func AggregateByCategory(ctx context.Context, store RecordStore, scope Scope, stream core.Stream, limit int) ([]CategoryAggregate, error) {
	if limit <= 0 {
		return nil, InvalidInput("limit must be a positive integer, got %d", limit)
	}
	if !stream.Valid() {
		return nil, InvalidInput("invalid stream %q", stream)
	}
	groups, err := store.Group(ctx, stream, scope, GroupByCategory)
	if err != nil {
		return nil, DependencyFailure("group "+string(stream)+" by category", err)
	}
	return RankCategories(groups, limit), nil
}

// RankCategories turns category groups into ranked aggregates. The
// percentage denominator is the total of every group passed in.
func RankCategories(groups []Group, limit int) []CategoryAggregate {
	var total core.Money
	for _, g := range groups {
		total = total.Add(g.Total)
	}
	out := make([]CategoryAggregate, 0, len(groups))
	for _, g := range groups {
		out = append(out, CategoryAggregate{
			Category: g.Key,
			Amount:   g.Total,
			Count:    g.Count,
			Percent:  percentOf(g.Total.Decimal(), total.Decimal()),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TimeSeries buckets both streams by day, or by month for yearly windows.
// Only buckets with at least one record in either stream are returned,
// sorted ascending.
func TimeSeries(ctx context.Context, store RecordStore, scope Scope) ([]SeriesPoint, error) {
	key := scope.Window.Kind.BucketKey()

	var expenses, incomes []Group
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = store.Group(gctx, core.StreamExpense, scope, key)
		return DependencyFailure("group expenses by "+string(key), err)
	})
	g.Go(func() error {
		var err error
		incomes, err = store.Group(gctx, core.StreamIncome, scope, key)
		return DependencyFailure("group incomes by "+string(key), err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	buckets := make(map[string]*SeriesPoint, len(expenses)+len(incomes))
	point := func(k string) *SeriesPoint {
		p, ok := buckets[k]
		if !ok {
			p = &SeriesPoint{Date: k}
			buckets[k] = p
		}
		return p
	}
	for _, e := range expenses {
		p := point(e.Key)
		p.Expense = p.Expense.Add(e.Total)
	}
	for _, i := range incomes {
		p := point(i.Key)
		p.Income = p.Income.Add(i.Total)
	}

	out := make([]SeriesPoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// FetchRecords loads the raw records of both streams concurrently.
func FetchRecords(ctx context.Context, store RecordStore, scope Scope) (expenses, incomes []core.Transaction, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var ferr error
		expenses, ferr = store.Find(gctx, core.StreamExpense, scope)
		return DependencyFailure("find expenses", ferr)
	})
	g.Go(func() error {
		var ferr error
		incomes, ferr = store.Find(gctx, core.StreamIncome, scope)
		return DependencyFailure("find incomes", ferr)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return expenses, incomes, nil
}

// percentOf returns part/whole*100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// perDay divides an amount over the days of a window.
func perDay(amount decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return amount.Div(decimal.NewFromInt(int64(days)))
}
