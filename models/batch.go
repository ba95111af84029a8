package models

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus is the result of processing one symbol in a batch.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// SymbolOutcome records what happened to one symbol during a batch.
type SymbolOutcome struct {
	Symbol string        `json:"symbol"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// BatchReport summarizes a catalog build.
type BatchReport struct {
	ID         uuid.UUID       `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
	Outcomes   []SymbolOutcome `json:"outcomes"`
	FromCache  bool            `json:"from_cache"`
}

// NewBatchReport creates a report with room for n outcomes.
func NewBatchReport(n int) *BatchReport {
	return &BatchReport{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Outcomes:  make([]SymbolOutcome, 0, n),
	}
}

// Record appends an outcome.
func (r *BatchReport) Record(o SymbolOutcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Complete stamps the elapsed duration.
func (r *BatchReport) Complete(durationMs int64) {
	r.DurationMs = durationMs
}

// Count returns how many outcomes have the given status.
func (r *BatchReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes.
func (r *BatchReport) Failures() []SymbolOutcome {
	out := make([]SymbolOutcome, 0)
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}
