package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestor/internal/clock"
	"gestor/internal/core"
	"gestor/internal/stats"
	"gestor/internal/storage/memory"
)

const (
	owner    = "9d7e1c39-54a1-4c55-8c7f-0c2b1c0f6a01"
	stranger = "1a2b3c4d-0000-4000-8000-000000000002"
)

var wallet = uuid.MustParse("5f1b0c7e-2a44-4d8b-9e43-6a3b5b7c9d10").String()

type fixture struct {
	store *memory.Store
	svc   *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.UpsertWallet(context.Background(), core.Wallet{ID: wallet, Owner: owner, Name: "Card"}))
	now := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	return &fixture{
		store: store,
		svc:   NewReportService(store, store, clock.NewFixed(now), nil),
	}
}

func (f *fixture) add(t *testing.T, stream core.Stream, cents int64, category string, at time.Time, walletID string) {
	t.Helper()
	require.NoError(t, f.store.UpsertTransaction(context.Background(), core.Transaction{
		ID: uuid.NewString(), Owner: owner, Wallet: walletID, Stream: stream,
		Amount: core.Cents(cents), Category: category, OccurredAt: at,
	}))
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 10, 0, 0, 0, time.UTC)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.StreamIncome, 310000, "salary", day(1, 1), "")
	f.add(t, core.StreamExpense, 62000, "rent", day(1, 3), "")
	f.add(t, core.StreamExpense, 31000, "food", day(1, 9), "")
	f.add(t, core.StreamExpense, 99999, "food", day(1, 9), wallet)

	got, err := f.svc.Summary(context.Background(), ReportRequest{Owner: owner, Period: "monthly"})
	require.NoError(t, err)

	assert.Equal(t, 31, got.Days)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got.Window.Start)
	assert.Equal(t, int64(310000), got.Income.Total.Cents)
	assert.Equal(t, int64(93000), got.Expense.Total.Cents)
	assert.Equal(t, int64(2), got.Expense.Count)
	assert.Equal(t, int64(217000), got.Balance.Total.Cents)
	assert.Equal(t, "100.00", got.Income.DailyAverage.StringFixed(2))
	assert.Equal(t, "30.00", got.Expense.DailyAverage.StringFixed(2))
	assert.Equal(t, "70.00", got.SavingsRate.StringFixed(2))
	assert.Equal(t, "30.00", got.ExpenseIncomeRatio.StringFixed(2))
}

func TestSummaryWithoutIncomeHasZeroRates(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.StreamExpense, 1000, "food", day(1, 3), "")

	got, err := f.svc.Summary(context.Background(), ReportRequest{Owner: owner, Period: "weekly", ReferenceDate: "2024-01-03"})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Days)
	assert.True(t, got.SavingsRate.IsZero())
	assert.True(t, got.ExpenseIncomeRatio.IsZero())
	assert.Equal(t, int64(-1000), got.Balance.Total.Cents)
}

func TestSummaryScopesToWallet(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.StreamExpense, 1000, "food", day(1, 3), "")
	f.add(t, core.StreamExpense, 2500, "food", day(1, 3), wallet)

	got, err := f.svc.Summary(context.Background(), ReportRequest{Owner: owner, Period: "monthly", WalletID: wallet})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.Expense.Total.Cents)
}

func TestTrends(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.StreamIncome, 200000, "salary", day(12, 1).AddDate(-1, 0, 0), "")
	f.add(t, core.StreamExpense, 50000, "rent", day(12, 3).AddDate(-1, 0, 0), "")
	f.add(t, core.StreamIncome, 250000, "salary", day(1, 1), "")
	f.add(t, core.StreamExpense, 40000, "rent", day(1, 3), "")
	f.add(t, core.StreamExpense, 5000, "food", day(1, 3), "")

	got, err := f.svc.Trends(context.Background(), ReportRequest{Owner: owner, Period: "monthly", ReferenceDate: "2024-01-15"})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), got.Previous.Window.Start)
	assert.Equal(t, int64(250000), got.Current.Income.Total.Cents)
	assert.Equal(t, int64(200000), got.Previous.Income.Total.Cents)

	assert.Equal(t, int64(50000), got.Income.Absolute.Cents)
	assert.Equal(t, "25.00", got.Income.Percent.StringFixed(2))
	assert.Equal(t, stats.Increase, got.Income.Direction)

	assert.Equal(t, int64(-5000), got.Expense.Absolute.Cents)
	assert.Equal(t, "-10.00", got.Expense.Percent.StringFixed(2))
	assert.Equal(t, stats.Decrease, got.Expense.Direction)

	// balance 205000 vs 150000
	assert.Equal(t, int64(55000), got.Balance.Absolute.Cents)
	assert.Equal(t, "36.67", got.Balance.Percent.StringFixed(2))

	require.Len(t, got.Series, 2)
	assert.Equal(t, "2024-01-01", got.Series[0].Date)
	assert.Equal(t, int64(250000), got.Series[0].Income.Cents)
	assert.True(t, got.Series[0].Expense.IsZero())
	assert.Equal(t, int64(45000), got.Series[1].Expense.Cents)
}

func TestCategoryBreakdown(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.StreamExpense, 1000, "food", day(12, 10).AddDate(-1, 0, 0), "")
	f.add(t, core.StreamExpense, 9000, "transport", day(12, 10).AddDate(-1, 0, 0), "")
	f.add(t, core.StreamExpense, 5000, "food", day(1, 2), "")
	f.add(t, core.StreamExpense, 3000, "food", day(1, 15), "")
	f.add(t, core.StreamExpense, 2000, "transport", day(1, 20), "")
	f.add(t, core.StreamIncome, 100000, "salary", day(1, 1), "")

	got, err := f.svc.CategoryBreakdown(context.Background(), ReportRequest{Owner: owner, Period: "monthly", Streams: "expenses"})
	require.NoError(t, err)
	assert.Nil(t, got.Income)
	require.NotNil(t, got.Expense)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, int64(10000), got.Expense.Total.Cents)
	assert.Equal(t, int64(3), got.Expense.Count)

	require.Len(t, got.Expense.Categories, 2)
	food := got.Expense.Categories[0]
	assert.Equal(t, "food", food.Category)
	assert.Equal(t, "80.00", food.Percent.StringFixed(2))
	assert.Equal(t, "40.00", food.Average.StringFixed(2))
	assert.Equal(t, TrendUp, food.Trend)
	assert.Equal(t, TrendDown, got.Expense.Categories[1].Trend)

	both, err := f.svc.CategoryBreakdown(context.Background(), ReportRequest{Owner: owner, Period: "monthly", Limit: "1"})
	require.NoError(t, err)
	require.NotNil(t, both.Income)
	require.Len(t, both.Expense.Categories, 1)
	assert.Equal(t, TrendUp, both.Income.Categories[0].Trend)
}

func TestReportInputErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name string
		req  ReportRequest
		want error
	}{
		{"missing period", ReportRequest{Owner: owner}, stats.ErrInvalidInput},
		{"bad period", ReportRequest{Owner: owner, Period: "daily"}, stats.ErrInvalidInput},
		{"bad reference", ReportRequest{Owner: owner, Period: "weekly", ReferenceDate: "yesterday"}, stats.ErrInvalidInput},
		{"bad wallet", ReportRequest{Owner: owner, Period: "weekly", WalletID: "123"}, stats.ErrInvalidInput},
		{"foreign wallet", ReportRequest{Owner: stranger, Period: "weekly", WalletID: wallet}, stats.ErrNotFound},
		{"no owner", ReportRequest{Period: "weekly"}, stats.ErrUnauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Summary(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
			_, err = f.svc.Trends(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
			_, err = f.svc.Behavior(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.CategoryBreakdown(ctx, ReportRequest{Owner: owner, Period: "weekly", Streams: "transfers"})
	assert.ErrorIs(t, err, stats.ErrInvalidInput)
	for _, limit := range []string{"0", "-3", "ten"} {
		_, err = f.svc.CategoryBreakdown(ctx, ReportRequest{Owner: owner, Period: "weekly", Limit: limit})
		assert.ErrorIs(t, err, stats.ErrInvalidInput, limit)
	}
}

type brokenStore struct{ stats.RecordStore }

var errDown = errors.New("database is down")

func (brokenStore) Find(context.Context, core.Stream, stats.Scope) ([]core.Transaction, error) {
	return nil, errDown
}

func (brokenStore) Totals(context.Context, core.Stream, stats.Scope) (stats.AggregateResult, error) {
	return stats.AggregateResult{}, errDown
}

func TestReportDependencyFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewReportService(brokenStore{f.store}, f.store, clock.NewFixed(day(1, 20)), nil)

	_, err := svc.Summary(context.Background(), ReportRequest{Owner: owner, Period: "monthly"})
	assert.ErrorIs(t, err, stats.ErrDependencyFailure)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, stats.KindDependencyFailure, stats.KindOf(err))

	_, err = svc.Behavior(context.Background(), ReportRequest{Owner: owner, Period: "monthly"})
	assert.ErrorIs(t, err, errDown)
}

func TestBehavior(t *testing.T) {
	f := newFixture(t)
	f.add(t, core.StreamExpense, 1500, "food", day(1, 15), "")
	f.add(t, core.StreamExpense, 500, "food", day(1, 16), "")
	f.add(t, core.StreamIncome, 9000, "gift", day(1, 16), "")

	got, err := f.svc.Behavior(context.Background(), ReportRequest{Owner: owner, Period: "weekly", ReferenceDate: "2024-01-21"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got.Window.Start)
	assert.Equal(t, 2, got.ActiveDays)
	assert.Equal(t, "28.57", got.ActivityRatio.StringFixed(2))
	assert.Equal(t, "10.00", got.AveragePerTransaction.StringFixed(2))
	assert.Equal(t, "2.86", got.AveragePerActiveDay.StringFixed(2))
	require.Len(t, got.CategoryFrequency, 1)
	assert.Equal(t, "100.00", got.CategoryFrequency[0].Percent.StringFixed(2))
}

func TestParseStreamFilter(t *testing.T) {
	got, err := ParseStreamFilter("")
	require.NoError(t, err)
	assert.Equal(t, []core.Stream{core.StreamExpense, core.StreamIncome}, got)

	got, err = ParseStreamFilter("Income")
	require.NoError(t, err)
	assert.Equal(t, []core.Stream{core.StreamIncome}, got)
}

func TestReportRequestKey(t *testing.T) {
	a := ReportRequest{Owner: owner, Period: "Monthly "}
	b := ReportRequest{Owner: owner, Period: "monthly"}
	assert.Equal(t, a.Key(ReportSummary), b.Key(ReportSummary))
	assert.NotEqual(t, a.Key(ReportSummary), a.Key(ReportTrends))
	assert.NotEqual(t, a.Key(ReportSummary), ReportRequest{Owner: stranger, Period: "monthly"}.Key(ReportSummary))
}
