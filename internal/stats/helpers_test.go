package stats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gestor/internal/core"
	"gestor/internal/stats"
	"gestor/internal/storage/memory"
)

const owner = "3b0c8f54-2f8e-4d5e-9d0a-0d3f6d1c2a11"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(decimal.RequireFromString(want)), "expected %s, got %s", want, got)
}

func window(t *testing.T, kind stats.PeriodKind, ref time.Time) stats.Window {
	t.Helper()
	w, err := stats.ResolveWindow(kind, ref)
	require.NoError(t, err)
	return w
}

type record struct {
	stream   core.Stream
	cents    int64
	category string
	at       time.Time
}

func seed(t *testing.T, records ...record) *memory.Store {
	t.Helper()
	s := memory.New()
	for i, r := range records {
		err := s.UpsertTransaction(context.Background(), core.Transaction{
			ID:         string(rune('A' + i)),
			Owner:      owner,
			Stream:     r.stream,
			Amount:     core.Cents(r.cents),
			Category:   r.category,
			OccurredAt: r.at,
		})
		require.NoError(t, err)
	}
	return s
}

var errBoom = errors.New("boom")

// failingStore fails every call for one stream.
type failingStore struct {
	stats.RecordStore
	stream core.Stream
}

func (f failingStore) Totals(ctx context.Context, stream core.Stream, scope stats.Scope) (stats.AggregateResult, error) {
	if stream == f.stream {
		return stats.AggregateResult{}, errBoom
	}
	return f.RecordStore.Totals(ctx, stream, scope)
}

func (f failingStore) Group(ctx context.Context, stream core.Stream, scope stats.Scope, key stats.GroupKey) ([]stats.Group, error) {
	if stream == f.stream {
		return nil, errBoom
	}
	return f.RecordStore.Group(ctx, stream, scope, key)
}

func (f failingStore) Find(ctx context.Context, stream core.Stream, scope stats.Scope) ([]core.Transaction, error) {
	if stream == f.stream {
		return nil, errBoom
	}
	return f.RecordStore.Find(ctx, stream, scope)
}
