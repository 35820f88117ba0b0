// Package storage persists wallets and transactions in SQLite and answers
// the scoped aggregations reports need.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gestor/internal/core"
	"gestor/internal/stats"

	_ "modernc.org/sqlite"
)

// timeLayout keeps occurred_at fixed width so string comparison orders
// instants correctly.
const timeLayout = "2006-01-02T15:04:05.000Z"

var tables = map[core.Stream]string{
	core.StreamExpense: "expenses",
	core.StreamIncome:  "incomes",
}

var groupExprs = map[stats.GroupKey]string{
	stats.GroupByCategory: "category",
	stats.GroupByDay:      "substr(occurred_at, 1, 10)",
	stats.GroupByMonth:    "substr(occurred_at, 1, 7) || '-01'",
}

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := DSN(dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// DSN adds the pragmas shared by the API and the worker, which open the
// same file from separate processes.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FindWallet implements stats.WalletStore.
func (r *SQLiteRepository) FindWallet(ctx context.Context, id, owner string) (core.Wallet, error) {
	var w core.Wallet
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name FROM wallets WHERE id = ? AND owner_id = ?`, id, owner,
	).Scan(&w.ID, &w.Owner, &w.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, core.ErrWalletNotFound
	}
	if err != nil {
		return core.Wallet{}, fmt.Errorf("find wallet %s: %w", id, err)
	}
	return w, nil
}

// UpsertWallet inserts or renames a wallet. A wallet never changes owner.
func (r *SQLiteRepository) UpsertWallet(ctx context.Context, w core.Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, owner_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = CURRENT_TIMESTAMP
		WHERE wallets.owner_id = excluded.owner_id`,
		w.ID, w.Owner, w.Name)
	if err != nil {
		return fmt.Errorf("upsert wallet %s: %w", w.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteWallet(ctx context.Context, owner, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ? AND owner_id = ?`, id, owner); err != nil {
		return fmt.Errorf("delete wallet %s: %w", id, err)
	}
	return nil
}

// UpsertTransaction inserts or replaces a record of its stream. Records of
// another owner with the same id are left alone.
func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	table := tables[tx.Stream]
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, owner_id, wallet_id, amount_cents, category, description, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			wallet_id = excluded.wallet_id,
			amount_cents = excluded.amount_cents,
			category = excluded.category,
			description = excluded.description,
			occurred_at = excluded.occurred_at,
			updated_at = CURRENT_TIMESTAMP
		WHERE %[1]s.owner_id = excluded.owner_id`, table)
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.Owner, nullable(tx.Wallet), tx.Amount.Cents, tx.Category, tx.Description,
		formatTime(tx.OccurredAt))
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", tx.Stream, tx.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, stream core.Stream, owner, id string) error {
	table, ok := tables[stream]
	if !ok {
		return core.ErrInvalidStream
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner_id = ?`, table)
	if _, err := r.db.ExecContext(ctx, query, id, owner); err != nil {
		return fmt.Errorf("delete %s %s: %w", stream, id, err)
	}
	return nil
}

// Totals implements stats.RecordStore.
func (r *SQLiteRepository) Totals(ctx context.Context, stream core.Stream, scope stats.Scope) (stats.AggregateResult, error) {
	table, ok := tables[stream]
	if !ok {
		return stats.AggregateResult{}, core.ErrInvalidStream
	}
	where, args := scopeClause(scope)
	query := fmt.Sprintf(`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM %s WHERE %s`, table, where)

	var res stats.AggregateResult
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&res.Total.Cents, &res.Count); err != nil {
		return stats.AggregateResult{}, fmt.Errorf("sum %s: %w", table, err)
	}
	return res, nil
}

// Group implements stats.RecordStore.
func (r *SQLiteRepository) Group(ctx context.Context, stream core.Stream, scope stats.Scope, key stats.GroupKey) ([]stats.Group, error) {
	table, ok := tables[stream]
	if !ok {
		return nil, core.ErrInvalidStream
	}
	expr, ok := groupExprs[key]
	if !ok {
		return nil, fmt.Errorf("unknown group key %q", key)
	}
	where, args := scopeClause(scope)
	query := fmt.Sprintf(`
		SELECT %s AS k, COALESCE(SUM(amount_cents), 0), COUNT(*)
		FROM %s WHERE %s
		GROUP BY k ORDER BY k`, expr, table, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group %s by %s: %w", table, key, err)
	}
	defer rows.Close()

	var out []stats.Group
	for rows.Next() {
		var g stats.Group
		if err := rows.Scan(&g.Key, &g.Total.Cents, &g.Count); err != nil {
			return nil, fmt.Errorf("scan %s group: %w", table, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s groups: %w", table, err)
	}
	return out, nil
}

// Find implements stats.RecordStore.
func (r *SQLiteRepository) Find(ctx context.Context, stream core.Stream, scope stats.Scope) ([]core.Transaction, error) {
	table, ok := tables[stream]
	if !ok {
		return nil, core.ErrInvalidStream
	}
	where, args := scopeClause(scope)
	query := fmt.Sprintf(`
		SELECT id, owner_id, wallet_id, amount_cents, category, description, occurred_at
		FROM %s WHERE %s
		ORDER BY occurred_at, id`, table, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx       core.Transaction
			wallet   sql.NullString
			occurred string
		)
		if err := rows.Scan(&tx.ID, &tx.Owner, &wallet, &tx.Amount.Cents, &tx.Category, &tx.Description, &occurred); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		at, err := time.Parse(timeLayout, occurred)
		if err != nil {
			return nil, fmt.Errorf("parse occurred_at of %s: %w", tx.ID, err)
		}
		tx.Wallet = wallet.String
		tx.Stream = stream
		tx.OccurredAt = at
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// scopeClause renders the owner, wallet and window predicate. A scope
// without wallet matches wallet_id IS NULL only.
func scopeClause(scope stats.Scope) (string, []any) {
	start, end := scope.Bounds()
	return `owner_id = ? AND wallet_id IS ? AND occurred_at BETWEEN ? AND ?`,
		[]any{scope.Owner, nullable(scope.Wallet), formatTime(start), formatTime(end)}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
