package stats

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"gestor/internal/core"
)

// Scope restricts records to one owner, one window and one wallet. An empty
// Wallet selects records without a wallet, not every wallet of the owner.
type Scope struct {
	Owner  string
	Wallet string
	Window Window
}

// HasWallet reports whether the scope targets a specific wallet.
func (s Scope) HasWallet() bool {
	return s.Wallet != ""
}

// WithWindow returns a copy of s over another window.
func (s Scope) WithWindow(w Window) Scope {
	s.Window = w
	return s
}

// Matches applies the scope predicate to a single record.
func (s Scope) Matches(tx core.Transaction) bool {
	return tx.Owner == s.Owner &&
		tx.Wallet == s.Wallet &&
		s.Window.Contains(tx.OccurredAt)
}

// Bounds returns the window bounds, convenient for store queries.
func (s Scope) Bounds() (time.Time, time.Time) {
	return s.Window.Start, s.Window.End
}

// BuildScope validates the owner and, when walletID is set, that the wallet
// exists and belongs to owner.
func BuildScope(ctx context.Context, wallets WalletStore, owner string, window Window, walletID string) (Scope, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Scope{}, Unauthenticated("missing owner identity")
	}
	scope := Scope{Owner: owner, Window: window}

	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return scope, nil
	}
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Scope{}, InvalidInput("invalid wallet id %q", walletID)
	}
	w, err := wallets.FindWallet(ctx, id.String(), owner)
	if errors.Is(err, core.ErrWalletNotFound) {
		return Scope{}, NotFound("wallet %s not found", walletID)
	}
	if err != nil {
		return Scope{}, DependencyFailure("find wallet", err)
	}
	// Owner filtering is the store's job; check it anyway.
	if w.Owner != owner {
		return Scope{}, NotFound("wallet %s not found", walletID)
	}
	scope.Wallet = w.ID
	return scope, nil
}
