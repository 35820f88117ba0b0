package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseStream(t *testing.T) {
	cases := []struct {
		in   string
		want Stream
		ok   bool
	}{
		{"expense", StreamExpense, true},
		{" Income ", StreamIncome, true},
		{"expenses", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseStream(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidStream) {
			t.Fatalf("%q expected ErrInvalidStream, got %v", tc.in, err)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected ok for zero, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestTransactionValidate(t *testing.T) {
	at := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	good := Transaction{
		ID:         "t1",
		Owner:      "u1",
		Stream:     StreamExpense,
		Amount:     Cents(5000),
		Category:   "food",
		OccurredAt: at,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutate := func(f func(*Transaction)) Transaction {
		tx := good
		f(&tx)
		return tx
	}
	bads := []struct {
		tx   Transaction
		want error
	}{
		{mutate(func(tx *Transaction) { tx.ID = "" }), ErrEmptyID},
		{mutate(func(tx *Transaction) { tx.Owner = " " }), ErrEmptyOwner},
		{mutate(func(tx *Transaction) { tx.Stream = "transfer" }), ErrInvalidStream},
		{mutate(func(tx *Transaction) { tx.Amount = Cents(-1) }), ErrInvalidAmount},
		{mutate(func(tx *Transaction) { tx.Category = "" }), ErrEmptyCategory},
		{mutate(func(tx *Transaction) { tx.OccurredAt = time.Time{} }), ErrMissingDate},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestWalletValidate(t *testing.T) {
	if err := (Wallet{ID: "w1", Owner: "u1"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Wallet{ID: "w1"}).Validate(); !errors.Is(err, ErrEmptyOwner) {
		t.Fatalf("expected ErrEmptyOwner, got %v", err)
	}
}
