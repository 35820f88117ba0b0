package worker

import (
	"context"
	"fmt"
	"time"

	"gestor/internal/amqp"
	"gestor/internal/core"
	"gestor/internal/log"
)

// Projection is the write side of the statistics store.
type Projection interface {
	UpsertTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, stream core.Stream, owner, id string) error
	UpsertWallet(ctx context.Context, w core.Wallet) error
	DeleteWallet(ctx context.Context, owner, id string) error
}

// Projector applies ledger events from the broker to the projection the
// report API reads from.
type Projector struct {
	store  Projection
	logger *log.Logger
}

func NewProjector(store Projection, logger *log.Logger) *Projector {
	if logger == nil {
		logger = log.Discard()
	}
	return &Projector{
		store:  store,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Handle applies one event. Events that fail domain validation are
// reported as amqp.ErrInvalidEvent so the consumer drops them; storage
// failures are returned as is and the delivery is retried.
func (p *Projector) Handle(ctx context.Context, event *amqp.Event) error {
	start := time.Now()
	if err := event.Validate(); err != nil {
		return err
	}

	var err error
	switch event.Type {
	case amqp.TransactionUpserted:
		err = p.upsertTransaction(ctx, event)
	case amqp.TransactionDeleted:
		err = p.deleteTransaction(ctx, event)
	case amqp.WalletUpserted:
		err = p.upsertWallet(ctx, event)
	case amqp.WalletDeleted:
		err = p.store.DeleteWallet(ctx, event.Owner, event.Wallet.ID)
	}
	if err != nil {
		return fmt.Errorf("project %s %s: %w", event.Type, event.ID, err)
	}

	fields := log.NewFields().WithOperation(operationOf(event.Type))
	fields[log.FieldEventID] = event.ID
	fields[log.FieldEventType] = string(event.Type)
	fields[log.FieldOwnerID] = event.Owner
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	if event.Transaction != nil {
		fields[log.FieldStream] = event.Transaction.Stream
		fields[log.FieldTxID] = event.Transaction.ID
	}
	p.logger.InfoContext(ctx, "Projected event", fields.ToSlice()...)
	return nil
}

func operationOf(t amqp.EventType) string {
	switch t {
	case amqp.TransactionDeleted, amqp.WalletDeleted:
		return log.OpDelete
	default:
		return log.OpUpsert
	}
}

func (p *Projector) upsertTransaction(ctx context.Context, event *amqp.Event) error {
	tx, err := event.ToTransaction()
	if err != nil {
		return err
	}
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%w: %v", amqp.ErrInvalidEvent, err)
	}
	return p.store.UpsertTransaction(ctx, tx)
}

func (p *Projector) deleteTransaction(ctx context.Context, event *amqp.Event) error {
	stream, err := core.ParseStream(event.Transaction.Stream)
	if err != nil {
		return fmt.Errorf("%w: %v", amqp.ErrInvalidEvent, err)
	}
	return p.store.DeleteTransaction(ctx, stream, event.Owner, event.Transaction.ID)
}

func (p *Projector) upsertWallet(ctx context.Context, event *amqp.Event) error {
	w := core.Wallet{ID: event.Wallet.ID, Owner: event.Owner, Name: event.Wallet.Name}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("%w: %v", amqp.ErrInvalidEvent, err)
	}
	return p.store.UpsertWallet(ctx, w)
}
