package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewBatchReport(t *testing.T) {
	r := NewBatchReport(3)

	if r.ID == uuid.Nil {
		t.Error("ID should not be nil UUID")
	}
	if r.StartedAt.IsZero() {
		t.Error("StartedAt should not be zero")
	}
	if len(r.Outcomes) != 0 {
		t.Errorf("Outcomes length = %v, want 0", len(r.Outcomes))
	}
	if cap(r.Outcomes) != 3 {
		t.Errorf("Outcomes cap = %v, want 3", cap(r.Outcomes))
	}
}

func TestBatchReport_Counts(t *testing.T) {
	r := NewBatchReport(4)
	r.Record(SymbolOutcome{Symbol: "KO", Status: OutcomeSuccess})
	r.Record(SymbolOutcome{Symbol: "AMZN", Status: OutcomeSkipped, Reason: "no dividend history"})
	r.Record(SymbolOutcome{Symbol: "XYZ", Status: OutcomeFailed, Reason: "timeout"})
	r.Record(SymbolOutcome{Symbol: "PG", Status: OutcomeSuccess})
	r.Complete(1500)

	if r.DurationMs != 1500 {
		t.Errorf("DurationMs = %v, want 1500", r.DurationMs)
	}
	if got := r.Count(OutcomeSuccess); got != 2 {
		t.Errorf("Count(success) = %v, want 2", got)
	}
	if got := r.Count(OutcomeSkipped); got != 1 {
		t.Errorf("Count(skipped) = %v, want 1", got)
	}

	failures := r.Failures()
	if len(failures) != 1 {
		t.Fatalf("Failures length = %v, want 1", len(failures))
	}
	if failures[0].Symbol != "XYZ" || failures[0].Reason != "timeout" {
		t.Errorf("Failures()[0] = %+v", failures[0])
	}
}
