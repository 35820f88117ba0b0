package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"gestor/internal/core"
)

// EventType names a change in the transaction or wallet ledgers.
type EventType string

const (
	TransactionUpserted EventType = "transaction.upserted"
	TransactionDeleted  EventType = "transaction.deleted"
	WalletUpserted      EventType = "wallet.upserted"
	WalletDeleted       EventType = "wallet.deleted"
)

// ErrInvalidEvent marks events that can never be applied. Consumers drop
// them instead of requeueing.
var ErrInvalidEvent = errors.New("invalid event")

// TransactionPayload is the wire form of a transaction. Amount is a decimal
// string so no precision is lost in JSON.
type TransactionPayload struct {
	ID          string    `json:"id"`
	Stream      string    `json:"stream"`
	Wallet      string    `json:"wallet,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurredAt,omitempty"`
}

// WalletPayload is the wire form of a wallet.
type WalletPayload struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Event is one ledger change published by the CRUD services.
type Event struct {
	ID          string              `json:"id"`
	Type        EventType           `json:"type"`
	Owner       string              `json:"owner"`
	Timestamp   time.Time           `json:"timestamp"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Wallet      *WalletPayload      `json:"wallet,omitempty"`
}

func newEvent(t EventType, owner string) *Event {
	return &Event{
		ID:        ulid.Make().String(),
		Type:      t,
		Owner:     owner,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransactionUpserted builds an upsert event for tx.
func NewTransactionUpserted(tx core.Transaction) *Event {
	e := newEvent(TransactionUpserted, tx.Owner)
	e.Transaction = &TransactionPayload{
		ID:          tx.ID,
		Stream:      string(tx.Stream),
		Wallet:      tx.Wallet,
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Description: tx.Description,
		OccurredAt:  tx.OccurredAt.UTC(),
	}
	return e
}

// NewTransactionDeleted builds a delete event.
func NewTransactionDeleted(owner string, stream core.Stream, id string) *Event {
	e := newEvent(TransactionDeleted, owner)
	e.Transaction = &TransactionPayload{ID: id, Stream: string(stream)}
	return e
}

// NewWalletUpserted builds a wallet upsert event.
func NewWalletUpserted(w core.Wallet) *Event {
	e := newEvent(WalletUpserted, w.Owner)
	e.Wallet = &WalletPayload{ID: w.ID, Name: w.Name}
	return e
}

// NewWalletDeleted builds a wallet delete event.
func NewWalletDeleted(owner, id string) *Event {
	e := newEvent(WalletDeleted, owner)
	e.Wallet = &WalletPayload{ID: id}
	return e
}

// Validate checks the envelope and that the payload matches the type.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.Owner == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidEvent)
	}
	switch e.Type {
	case TransactionUpserted, TransactionDeleted:
		if e.Transaction == nil || e.Transaction.ID == "" {
			return fmt.Errorf("%w: %s without transaction", ErrInvalidEvent, e.Type)
		}
		if _, err := core.ParseStream(e.Transaction.Stream); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	case WalletUpserted, WalletDeleted:
		if e.Wallet == nil || e.Wallet.ID == "" {
			return fmt.Errorf("%w: %s without wallet", ErrInvalidEvent, e.Type)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// ToTransaction converts the payload of a transaction event.
func (e *Event) ToTransaction() (core.Transaction, error) {
	if e.Transaction == nil {
		return core.Transaction{}, fmt.Errorf("%w: no transaction payload", ErrInvalidEvent)
	}
	p := e.Transaction
	stream, err := core.ParseStream(p.Stream)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	tx := core.Transaction{
		ID:          p.ID,
		Owner:       e.Owner,
		Wallet:      p.Wallet,
		Stream:      stream,
		Category:    p.Category,
		Description: p.Description,
		OccurredAt:  p.OccurredAt.UTC(),
	}
	if e.Type == TransactionUpserted {
		amount, err := core.ParseAmount(p.Amount)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: amount %q: %v", ErrInvalidEvent, p.Amount, err)
		}
		tx.Amount = amount
	}
	return tx, nil
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and validates an event.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
