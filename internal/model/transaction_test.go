package model

import (
	"errors"
	"testing"
	"time"
)

func TestAmountBucketKey(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		amount float64
	}{
		{name: "bottom of bucket", amount: 100.00, want: "100-199"},
		{name: "middle of bucket", amount: 150.00, want: "100-199"},
		{name: "top of bucket", amount: 199.99, want: "100-199"},
		{name: "next bucket boundary", amount: 200.00, want: "200-299"},
		{name: "zero", amount: 0, want: "0-99"},
		{name: "small amount", amount: 42.17, want: "0-99"},
		{name: "negative buckets on absolute value", amount: -150.00, want: "100-199"},
		{name: "large amount", amount: 12345.67, want: "12300-12399"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AmountBucketKey(tt.amount); got != tt.want {
				t.Errorf("AmountBucketKey(%v) = %q, want %q", tt.amount, got, tt.want)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		ClientID:    "client-1",
		ID:          "txn-1",
		Date:        time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "AWS usage",
		Amount:      120.50,
		Source:      "chase_checking",
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	tests := []struct {
		mutate func(*Transaction)
		name   string
	}{
		{name: "missing client id", mutate: func(txn *Transaction) { txn.ClientID = "" }},
		{name: "missing id", mutate: func(txn *Transaction) { txn.ID = "" }},
		{name: "missing date", mutate: func(txn *Transaction) { txn.Date = time.Time{} }},
		{name: "missing description", mutate: func(txn *Transaction) { txn.Description = "" }},
		{name: "missing source", mutate: func(txn *Transaction) { txn.Source = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := valid
			tt.mutate(&txn)
			err := txn.Validate()
			if !errors.Is(err, ErrInvalidTransaction) {
				t.Errorf("Validate() = %v, want ErrInvalidTransaction", err)
			}
		})
	}
}
