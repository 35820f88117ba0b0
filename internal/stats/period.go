// Package stats computes report windows, scopes and aggregates over the
// expense and income streams.
package stats

import (
	"strings"
	"time"

	"gestor/internal/clock"
)

// PeriodKind selects the calendar span of a report window.
type PeriodKind string

const (
	Weekly  PeriodKind = "weekly"
	Monthly PeriodKind = "monthly"
	Yearly  PeriodKind = "yearly"
)

const (
	DayLayout = "2006-01-02"
	day       = 24 * time.Hour
)

// Window is an inclusive calendar range. Start is at 00:00:00.000 and End
// at 23:59:59.999, both in UTC.
type Window struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
}

// ParsePeriodKind validates a caller supplied period.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch k := PeriodKind(strings.ToLower(strings.TrimSpace(s))); k {
	case Weekly, Monthly, Yearly:
		return k, nil
	case "":
		return "", InvalidInput("period is required (weekly, monthly or yearly)")
	default:
		return "", InvalidInput("invalid period %q (weekly, monthly or yearly)", s)
	}
}

// ParseReferenceDate accepts YYYY-MM-DD or RFC 3339. An empty string means
// the current instant of c.
func ParseReferenceDate(s string, c clock.Clock) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return c.Now().UTC(), nil
	}
	for _, layout := range []string{DayLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, InvalidInput("invalid reference date %q", s)
}

// ResolveWindow computes the window of kind containing ref.
func ResolveWindow(kind PeriodKind, ref time.Time) (Window, error) {
	ref = ref.UTC()
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	var start, next time.Time
	switch kind {
	case Weekly:
		// Weeks start on Monday; Sunday is the seventh day.
		offset := (int(today.Weekday()) + 6) % 7
		start = today.AddDate(0, 0, -offset)
		next = start.AddDate(0, 0, 7)
	case Monthly:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		next = start.AddDate(0, 1, 0)
	case Yearly:
		start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		next = start.AddDate(1, 0, 0)
	default:
		return Window{}, InvalidInput("invalid period %q", kind)
	}
	return Window{Kind: kind, Start: start, End: next.Add(-time.Millisecond)}, nil
}

// PreviousWindow returns the window of the same kind immediately before w:
// seven days back for weeks, the prior calendar month or year otherwise.
func PreviousWindow(w Window) Window {
	var prev time.Time
	switch w.Kind {
	case Weekly:
		return Window{Kind: w.Kind, Start: w.Start.AddDate(0, 0, -7), End: w.End.AddDate(0, 0, -7)}
	case Monthly:
		prev = w.Start.AddDate(0, -1, 0)
	default:
		prev = w.Start.AddDate(-1, 0, 0)
	}
	pw, _ := ResolveWindow(w.Kind, prev)
	return pw
}

// Previous is shorthand for PreviousWindow(w).
func (w Window) Previous() Window {
	return PreviousWindow(w)
}

// Days is the inclusive number of calendar days in w.
func (w Window) Days() int {
	return int(w.End.Add(time.Millisecond).Sub(w.Start) / day)
}

// Contains reports whether t falls inside w.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// BucketKey is the time-series granularity for windows of kind: months for
// yearly windows, days otherwise.
func (k PeriodKind) BucketKey() GroupKey {
	if k == Yearly {
		return GroupByMonth
	}
	return GroupByDay
}
