package backend

import (
	"context"

	"gestor/internal/core"
	"gestor/internal/stats"
)

// Backend is everything the binaries need from a data store: the report
// read ports plus the writes the event projector performs.
type Backend interface {
	stats.RecordStore
	stats.WalletStore

	UpsertTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, stream core.Stream, owner, id string) error
	UpsertWallet(ctx context.Context, w core.Wallet) error
	DeleteWallet(ctx context.Context, owner, id string) error

	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
