package stats

import (
	"context"
	"time"

	"gestor/internal/core"
)

// GroupKey selects how a stream is grouped by a RecordStore.
type GroupKey string

const (
	GroupByCategory GroupKey = "category"
	GroupByDay      GroupKey = "day"
	GroupByMonth    GroupKey = "month"
)

// AggregateResult is the sum and count of one stream in one scope.
type AggregateResult struct {
	Total core.Money
	Count int64
}

// Group is one row of a grouped aggregation. Key is the category string,
// the day (YYYY-MM-DD) or the first day of the month (YYYY-MM-01).
type Group struct {
	Key   string
	Total core.Money
	Count int64
}

// RecordStore runs scoped sum/count queries over the two streams.
type RecordStore interface {
	Totals(ctx context.Context, stream core.Stream, scope Scope) (AggregateResult, error)
	Group(ctx context.Context, stream core.Stream, scope Scope, key GroupKey) ([]Group, error)
	Find(ctx context.Context, stream core.Stream, scope Scope) ([]core.Transaction, error)
}

// WalletStore resolves wallets. FindWallet returns core.ErrWalletNotFound
// when the wallet does not exist or belongs to another owner.
type WalletStore interface {
	FindWallet(ctx context.Context, id, owner string) (core.Wallet, error)
}

// GroupValue computes the group key of tx under key. Stores that cannot
// group natively use it so bucket naming stays identical everywhere.
func GroupValue(key GroupKey, tx core.Transaction) string {
	switch key {
	case GroupByDay:
		return tx.OccurredAt.UTC().Format(DayLayout)
	case GroupByMonth:
		t := tx.OccurredAt.UTC()
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format(DayLayout)
	default:
		return tx.Category
	}
}
