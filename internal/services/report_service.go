package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gestor/internal/clock"
	"gestor/internal/core"
	"gestor/internal/log"
	"gestor/internal/stats"
)

// Report names used in logs and cache keys.
const (
	ReportSummary    = "summary"
	ReportTrends     = "trends"
	ReportCategories = "categories"
	ReportBehavior   = "behavior"
)

// ReportRequest carries raw caller input. Validation happens in the service
// so every transport reports the same InvalidInput errors.
type ReportRequest struct {
	Owner         string
	Period        string
	WalletID      string
	ReferenceDate string
	// Streams is expenses, income or both (default).
	Streams string
	// Limit is a positive integer; empty means stats.DefaultCategoryLimit.
	Limit string
}

// Key identifies the request for caching. It is stable across equivalent
// spellings of the same input.
func (r ReportRequest) Key(report string) string {
	return strings.Join([]string{
		report,
		r.Owner,
		strings.ToLower(strings.TrimSpace(r.Period)),
		strings.TrimSpace(r.WalletID),
		strings.TrimSpace(r.ReferenceDate),
		strings.ToLower(strings.TrimSpace(r.Streams)),
		strings.TrimSpace(r.Limit),
	}, "|")
}

// ReportService composes stats primitives into the four reports.
type ReportService struct {
	records stats.RecordStore
	wallets stats.WalletStore
	clock   clock.Clock
	logger  *log.StructuredLogger
}

func NewReportService(records stats.RecordStore, wallets stats.WalletStore, c clock.Clock, logger *log.Logger) *ReportService {
	if c == nil {
		c = clock.NewReal()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportService{
		records: records,
		wallets: wallets,
		clock:   c,
		logger:  log.NewStructuredLogger(logger.WithComponent(log.ComponentReport)),
	}
}

// StreamSummary is the total of one stream with its daily average.
type StreamSummary struct {
	Total        core.Money
	Count        int64
	DailyAverage decimal.Decimal
}

// Summary is the headline report of one window.
type Summary struct {
	Window  stats.Window
	Days    int
	Income  StreamSummary
	Expense StreamSummary
	Balance StreamSummary
	// Balance over income, zero without income.
	SavingsRate decimal.Decimal
	// Expense over income, zero without income.
	ExpenseIncomeRatio decimal.Decimal
}

// PeriodTotals are the stream totals of one window.
type PeriodTotals struct {
	Window  stats.Window
	Income  stats.AggregateResult
	Expense stats.AggregateResult
	Balance stats.AggregateResult
}

// Trends compares a window against the previous one.
type Trends struct {
	Current  PeriodTotals
	Previous PeriodTotals
	Income   stats.Delta
	Expense  stats.Delta
	Balance  stats.Delta
	Series   []stats.SeriesPoint
}

// CategoryTrend tells how a category moved against the previous window.
type CategoryTrend string

const (
	TrendUp     CategoryTrend = "up"
	TrendDown   CategoryTrend = "down"
	TrendStable CategoryTrend = "stable"
)

// CategoryLine is a ranked category with its average and trend.
type CategoryLine struct {
	stats.CategoryAggregate
	Average decimal.Decimal
	Trend   CategoryTrend
}

// StreamBreakdown ranks the categories of one stream.
type StreamBreakdown struct {
	Stream     core.Stream
	Total      core.Money
	Count      int64
	Categories []CategoryLine
}

// CategoryBreakdown holds one breakdown per requested stream. Streams that
// were not requested are nil.
type CategoryBreakdown struct {
	Window  stats.Window
	Limit   int
	Expense *StreamBreakdown
	Income  *StreamBreakdown
}

// BehaviorReport is stats.Behavior bound to its window.
type BehaviorReport struct {
	Window stats.Window
	stats.Behavior
}

// Summary totals both streams and derives averages and rates.
func (s *ReportService) Summary(ctx context.Context, req ReportRequest) (Summary, error) {
	start := time.Now()
	scope, err := s.scope(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	totals, err := stats.AggregateTotals(ctx, s.records, scope)
	if err != nil {
		return Summary{}, s.fail(ctx, ReportSummary, req, err)
	}

	days := scope.Window.Days()
	balance := totals.Balance()
	out := Summary{
		Window:  scope.Window,
		Days:    days,
		Income:  streamSummary(totals.Income, days),
		Expense: streamSummary(totals.Expense, days),
		Balance: streamSummary(balance, days),
	}
	if totals.Income.Total.Cents > 0 {
		income := totals.Income.Total.Decimal()
		out.SavingsRate = balance.Total.Decimal().Div(income).Mul(decimal.NewFromInt(100))
		out.ExpenseIncomeRatio = totals.Expense.Total.Decimal().Div(income).Mul(decimal.NewFromInt(100))
	}

	s.done(ctx, ReportSummary, req, start)
	return out, nil
}

// Trends compares the current window with the previous one and adds the
// current time series. All fetches run concurrently.
func (s *ReportService) Trends(ctx context.Context, req ReportRequest) (Trends, error) {
	start := time.Now()
	scope, err := s.scope(ctx, req)
	if err != nil {
		return Trends{}, err
	}
	prevScope := scope.WithWindow(scope.Window.Previous())

	var cur, prev stats.Totals
	var series []stats.SeriesPoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cur, err = stats.AggregateTotals(gctx, s.records, scope)
		return err
	})
	g.Go(func() (err error) {
		prev, err = stats.AggregateTotals(gctx, s.records, prevScope)
		return err
	})
	g.Go(func() (err error) {
		series, err = stats.TimeSeries(gctx, s.records, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return Trends{}, s.fail(ctx, ReportTrends, req, err)
	}

	out := Trends{
		Current:  periodTotals(scope.Window, cur),
		Previous: periodTotals(prevScope.Window, prev),
		Income:   stats.Compare(cur.Income, prev.Income),
		Expense:  stats.Compare(cur.Expense, prev.Expense),
		Balance:  stats.Compare(cur.Balance(), prev.Balance()),
		Series:   series,
	}
	s.done(ctx, ReportTrends, req, start)
	return out, nil
}

// CategoryBreakdown ranks categories of the requested streams and marks how
// each category moved against the previous window.
func (s *ReportService) CategoryBreakdown(ctx context.Context, req ReportRequest) (CategoryBreakdown, error) {
	start := time.Now()
	streams, err := ParseStreamFilter(req.Streams)
	if err != nil {
		return CategoryBreakdown{}, err
	}
	limit, err := ParseLimit(req.Limit)
	if err != nil {
		return CategoryBreakdown{}, err
	}
	scope, err := s.scope(ctx, req)
	if err != nil {
		return CategoryBreakdown{}, err
	}

	out := CategoryBreakdown{Window: scope.Window, Limit: limit}
	results := make([]*StreamBreakdown, len(streams))
	g, gctx := errgroup.WithContext(ctx)
	for i, stream := range streams {
		g.Go(func() error {
			b, err := s.breakdown(gctx, scope, stream, limit)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CategoryBreakdown{}, s.fail(ctx, ReportCategories, req, err)
	}
	for _, b := range results {
		switch b.Stream {
		case core.StreamExpense:
			out.Expense = b
		case core.StreamIncome:
			out.Income = b
		}
	}

	s.done(ctx, ReportCategories, req, start)
	return out, nil
}

func (s *ReportService) breakdown(ctx context.Context, scope stats.Scope, stream core.Stream, limit int) (*StreamBreakdown, error) {
	var cur, prev []stats.Group
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = s.records.Group(gctx, stream, scope, stats.GroupByCategory)
		return stats.DependencyFailure("group "+string(stream)+" by category", err)
	})
	g.Go(func() error {
		var err error
		prev, err = s.records.Group(gctx, stream, scope.WithWindow(scope.Window.Previous()), stats.GroupByCategory)
		return stats.DependencyFailure("group previous "+string(stream)+" by category", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &StreamBreakdown{Stream: stream}
	for _, gr := range cur {
		b.Total = b.Total.Add(gr.Total)
		b.Count += gr.Count
	}
	previous := make(map[string]core.Money, len(prev))
	for _, gr := range prev {
		previous[gr.Key] = gr.Total
	}

	ranked := stats.RankCategories(cur, limit)
	b.Categories = make([]CategoryLine, 0, len(ranked))
	for _, c := range ranked {
		d := stats.Compare(
			stats.AggregateResult{Total: c.Amount},
			stats.AggregateResult{Total: previous[c.Category]},
		)
		b.Categories = append(b.Categories, CategoryLine{
			CategoryAggregate: c,
			Average:           c.Average(),
			Trend:             trendOf(d),
		})
	}
	return b, nil
}

// Behavior loads the raw records once and derives activity metrics.
func (s *ReportService) Behavior(ctx context.Context, req ReportRequest) (BehaviorReport, error) {
	start := time.Now()
	scope, err := s.scope(ctx, req)
	if err != nil {
		return BehaviorReport{}, err
	}
	expenses, incomes, err := stats.FetchRecords(ctx, s.records, scope)
	if err != nil {
		return BehaviorReport{}, s.fail(ctx, ReportBehavior, req, err)
	}
	out := BehaviorReport{
		Window:   scope.Window,
		Behavior: stats.ComputeBehavior(scope.Window, expenses, incomes),
	}
	s.done(ctx, ReportBehavior, req, start)
	return out, nil
}

// scope validates period, reference date, owner and wallet.
func (s *ReportService) scope(ctx context.Context, req ReportRequest) (stats.Scope, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return stats.Scope{}, stats.Unauthenticated("missing owner identity")
	}
	kind, err := stats.ParsePeriodKind(req.Period)
	if err != nil {
		return stats.Scope{}, err
	}
	ref, err := stats.ParseReferenceDate(req.ReferenceDate, s.clock)
	if err != nil {
		return stats.Scope{}, err
	}
	w, err := stats.ResolveWindow(kind, ref)
	if err != nil {
		return stats.Scope{}, err
	}
	return stats.BuildScope(ctx, s.wallets, req.Owner, w, req.WalletID)
}

func (s *ReportService) done(ctx context.Context, report string, req ReportRequest, start time.Time) {
	s.logger.LogReport(ctx, report, req.Owner, req.Period, req.WalletID, time.Since(start).Milliseconds())
}

func (s *ReportService) fail(ctx context.Context, report string, req ReportRequest, err error) error {
	s.logger.LogError(ctx, "Report failed", err, log.OpRead,
		log.NewFields().WithReport(report, req.Owner, req.Period, req.WalletID))
	return stats.DependencyFailure(report, err)
}

// ParseStreamFilter maps expenses, income or both to streams.
func ParseStreamFilter(s string) ([]core.Stream, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return core.Streams(), nil
	case "expenses", "expense":
		return []core.Stream{core.StreamExpense}, nil
	case "income", "incomes":
		return []core.Stream{core.StreamIncome}, nil
	default:
		return nil, stats.InvalidInput("invalid type %q (expenses, income or both)", s)
	}
}

// ParseLimit parses a positive category limit, defaulting when empty.
func ParseLimit(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return stats.DefaultCategoryLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, stats.InvalidInput("limit must be a positive integer, got %q", s)
	}
	return n, nil
}

func streamSummary(r stats.AggregateResult, days int) StreamSummary {
	out := StreamSummary{Total: r.Total, Count: r.Count}
	if days > 0 {
		out.DailyAverage = r.Total.Decimal().Div(decimal.NewFromInt(int64(days)))
	}
	return out
}

func periodTotals(w stats.Window, t stats.Totals) PeriodTotals {
	return PeriodTotals{Window: w, Income: t.Income, Expense: t.Expense, Balance: t.Balance()}
}

func trendOf(d stats.Delta) CategoryTrend {
	switch {
	case d.Absolute.IsZero():
		return TrendStable
	case d.Direction == stats.Increase:
		return TrendUp
	default:
		return TrendDown
	}
}
