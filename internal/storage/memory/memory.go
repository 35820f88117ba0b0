// Package memory is an in-process record and wallet store used for tests
// and for running the API without a database.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gestor/internal/core"
	"gestor/internal/stats"
)

type Store struct {
	mu      sync.RWMutex
	wallets map[string]core.Wallet
	records map[core.Stream]map[string]core.Transaction
}

func New() *Store {
	return &Store{
		wallets: make(map[string]core.Wallet),
		records: map[core.Stream]map[string]core.Transaction{
			core.StreamExpense: {},
			core.StreamIncome:  {},
		},
	}
}

type seedFile struct {
	Wallets []struct {
		ID    string `json:"id"`
		Owner string `json:"owner"`
		Name  string `json:"name"`
	} `json:"wallets"`
	Transactions []struct {
		ID          string    `json:"id"`
		Owner       string    `json:"owner"`
		Wallet      string    `json:"wallet"`
		Stream      string    `json:"stream"`
		Amount      string    `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		OccurredAt  time.Time `json:"occurredAt"`
	} `json:"transactions"`
}

// NewFromFile builds a store seeded from a JSON fixture file. An empty
// path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	ctx := context.Background()
	for _, w := range seed.Wallets {
		if err := s.UpsertWallet(ctx, core.Wallet{ID: w.ID, Owner: w.Owner, Name: w.Name}); err != nil {
			return nil, fmt.Errorf("seed wallet %s: %w", w.ID, err)
		}
	}
	for _, t := range seed.Transactions {
		stream, err := core.ParseStream(t.Stream)
		if err != nil {
			return nil, fmt.Errorf("seed transaction %s: %w", t.ID, err)
		}
		amount, err := core.ParseAmount(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("seed transaction %s: %w", t.ID, err)
		}
		tx := core.Transaction{
			ID: t.ID, Owner: t.Owner, Wallet: t.Wallet, Stream: stream, Amount: amount,
			Category: t.Category, Description: t.Description, OccurredAt: t.OccurredAt,
		}
		if err := s.UpsertTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("seed transaction %s: %w", t.ID, err)
		}
	}
	return s, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) UpsertWallet(_ context.Context, w core.Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.wallets[w.ID]; ok && prev.Owner != w.Owner {
		return nil
	}
	s.wallets[w.ID] = w
	return nil
}

func (s *Store) DeleteWallet(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[id]; ok && w.Owner == owner {
		delete(s.wallets, id)
	}
	return nil
}

func (s *Store) UpsertTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	// Millisecond precision, as stored by the SQLite backend.
	tx.OccurredAt = tx.OccurredAt.UTC().Truncate(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	// Records never change owner.
	if prev, ok := s.records[tx.Stream][tx.ID]; ok && prev.Owner != tx.Owner {
		return nil
	}
	s.records[tx.Stream][tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, stream core.Stream, owner, id string) error {
	if !stream.Valid() {
		return core.ErrInvalidStream
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.records[stream][id]; ok && tx.Owner == owner {
		delete(s.records[stream], id)
	}
	return nil
}

// FindWallet returns core.ErrWalletNotFound unless the wallet exists and is
// owned by owner.
func (s *Store) FindWallet(_ context.Context, id, owner string) (core.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok || w.Owner != owner {
		return core.Wallet{}, core.ErrWalletNotFound
	}
	return w, nil
}

func (s *Store) Totals(ctx context.Context, stream core.Stream, scope stats.Scope) (stats.AggregateResult, error) {
	txs, err := s.Find(ctx, stream, scope)
	if err != nil {
		return stats.AggregateResult{}, err
	}
	var r stats.AggregateResult
	for _, tx := range txs {
		r.Total = r.Total.Add(tx.Amount)
		r.Count++
	}
	return r, nil
}

func (s *Store) Group(ctx context.Context, stream core.Stream, scope stats.Scope, key stats.GroupKey) ([]stats.Group, error) {
	txs, err := s.Find(ctx, stream, scope)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int)
	var out []stats.Group
	for _, tx := range txs {
		k := stats.GroupValue(key, tx)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, stats.Group{Key: k})
		}
		out[i].Total = out[i].Total.Add(tx.Amount)
		out[i].Count++
	}
	return out, nil
}

// Find returns the scoped records ordered by occurrence.
func (s *Store) Find(ctx context.Context, stream core.Stream, scope stats.Scope) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !stream.Valid() {
		return nil, core.ErrInvalidStream
	}
	s.mu.RLock()
	var out []core.Transaction
	for _, tx := range s.records[stream] {
		if scope.Matches(tx) {
			out = append(out, tx)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
