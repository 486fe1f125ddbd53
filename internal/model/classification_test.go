package model

import (
	"errors"
	"testing"
)

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		input   string
		want    Confidence
		wantErr bool
	}{
		{input: "high", want: ConfidenceHigh},
		{input: "HIGH", want: ConfidenceHigh},
		{input: " medium ", want: ConfidenceMedium},
		{input: "low", want: ConfidenceLow},
		{input: "0.95", wantErr: true},
		{input: "", wantErr: true},
		{input: "certain", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConfidence(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseConfidence(%q) accepted, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfidence(%q) = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseConfidence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfidenceRank(t *testing.T) {
	if ConfidenceHigh.Rank() <= ConfidenceMedium.Rank() {
		t.Error("high must rank above medium")
	}
	if ConfidenceMedium.Rank() <= ConfidenceLow.Rank() {
		t.Error("medium must rank above low")
	}
	if Confidence("bogus").Rank() != -1 {
		t.Error("unknown confidence must rank -1")
	}
}

func TestCheckedAccessorsGateOnStatus(t *testing.T) {
	record := &ClassificationRecord{
		ClientID:      "c1",
		TransactionID: "t1",
		Payee:         &PayeeResult{Payee: "GitHub", Confidence: ConfidenceHigh},
		Category:      &CategoryResult{Category: "Software", BusinessPercentage: 100},
	}

	status := NewProcessingStatus("c1", "t1")

	// Fields are populated but no pass is completed yet.
	if _, err := record.CompletedPayee(status); !errors.Is(err, ErrPassNotCompleted) {
		t.Errorf("CompletedPayee before completion = %v, want ErrPassNotCompleted", err)
	}

	status.Passes[PassPayee].Status = StatusCompleted
	payee, err := record.CompletedPayee(status)
	if err != nil {
		t.Fatalf("CompletedPayee after completion: %v", err)
	}
	if payee.Payee != "GitHub" {
		t.Errorf("payee = %q, want GitHub", payee.Payee)
	}

	// Category pass still processing: its fields stay unauthoritative.
	status.Passes[PassCategory].Status = StatusProcessing
	if _, err := record.CompletedCategory(status); !errors.Is(err, ErrPassNotCompleted) {
		t.Errorf("CompletedCategory while processing = %v, want ErrPassNotCompleted", err)
	}

	// Completed status but the record pointer is nil: still gated.
	status.Passes[PassBusiness].Status = StatusCompleted
	if _, err := record.CompletedBusiness(status); !errors.Is(err, ErrPassNotCompleted) {
		t.Errorf("CompletedBusiness with nil result = %v, want ErrPassNotCompleted", err)
	}

	if _, err := record.CompletedPayee(nil); !errors.Is(err, ErrPassNotCompleted) {
		t.Errorf("CompletedPayee with nil status = %v, want ErrPassNotCompleted", err)
	}
}

func TestBusinessAmount(t *testing.T) {
	record := &ClassificationRecord{
		Business: &BusinessResult{Worksheet: Worksheet6A, TaxCategoryID: 6, BusinessPercentage: 50},
	}
	status := NewProcessingStatus("c1", "t1")

	if got := record.BusinessAmount(status, 200); got != 0 {
		t.Errorf("BusinessAmount before completion = %v, want 0", got)
	}

	status.Passes[PassBusiness].Status = StatusCompleted
	if got := record.BusinessAmount(status, 200); got != 100 {
		t.Errorf("BusinessAmount = %v, want 100", got)
	}
}

func TestPassStatusEligible(t *testing.T) {
	eligible := []PassStatus{StatusPending, StatusForceRequired, StatusError}
	for _, s := range eligible {
		if !s.Eligible() {
			t.Errorf("%s should be eligible", s)
		}
	}
	ineligible := []PassStatus{StatusProcessing, StatusCompleted, StatusSkipped}
	for _, s := range ineligible {
		if s.Eligible() {
			t.Errorf("%s should not be eligible", s)
		}
	}
}
