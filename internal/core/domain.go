package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StreamExpense Stream = "expense"
	StreamIncome  Stream = "income"
)

type (
	// Stream is one of the two independent transaction kinds.
	Stream string

	// Transaction is a single expense or income record. An empty Wallet
	// means the record is not assigned to any wallet.
	Transaction struct {
		ID          string
		Owner       string
		Wallet      string
		Stream      Stream
		Amount      Money
		Category    string
		Description string
		OccurredAt  time.Time
	}

	// Wallet is an optional sub-ledger owned by a user.
	Wallet struct {
		ID    string
		Owner string
		Name  string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidStream   = errors.New("invalid stream")
	ErrEmptyID         = errors.New("empty id")
	ErrEmptyOwner      = errors.New("empty owner")
	ErrEmptyCategory   = errors.New("empty category")
	ErrMissingDate     = errors.New("missing occurrence date")
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrDescriptionSize = errors.New("description too long (max 200 characters)")
)

// Streams lists both streams in a stable order.
func Streams() []Stream {
	return []Stream{StreamExpense, StreamIncome}
}

// ParseStream converts a stored or wire value into a Stream.
func ParseStream(s string) (Stream, error) {
	switch Stream(strings.ToLower(strings.TrimSpace(s))) {
	case StreamExpense:
		return StreamExpense, nil
	case StreamIncome:
		return StreamIncome, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStream, s)
	}
}

func (s Stream) Valid() bool {
	return s == StreamExpense || s == StreamIncome
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if !t.Stream.Valid() {
		return ErrInvalidStream
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	// Categories are free text, only emptiness is rejected.
	if t.Category == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionSize
	}
	if t.OccurredAt.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(w.Owner) == "" {
		return ErrEmptyOwner
	}
	return nil
}
