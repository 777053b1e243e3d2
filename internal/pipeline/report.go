package pipeline

import (
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

// Outcome tags what happened to one candidate block
type Outcome string

const (
	OutcomeInserted         Outcome = "inserted"
	OutcomeUpdated          Outcome = "updated"
	OutcomeParseError       Outcome = "parse_error"
	OutcomeValidationError  Outcome = "validation_error"
	OutcomePersistenceError Outcome = "persistence_error"
)

// Succeeded reports whether the block ended up in the store
func (o Outcome) Succeeded() bool {
	return o == OutcomeInserted || o == OutcomeUpdated
}

// ItemResult is the per-block result of a run
type ItemResult struct {
	Outcome Outcome
	Title   string
	// Key is zero unless a record was assembled
	Key    exam.NaturalKey
	Record *exam.Record
	// Changes lists the fields an update overwrote
	Changes  []exam.FieldChange
	Warnings []string
	Err      error
}

// SourceReport summarizes one adapter
type SourceReport struct {
	Source   string
	Blocks   int
	Counts   map[Outcome]int
	Items    []ItemResult
	Duration time.Duration
	// Err is set when the adapter itself failed
	Err error
}

// Failed reports whether the adapter failed as a whole
func (s SourceReport) Failed() bool {
	return s.Err != nil
}

// Failure names an adapter that failed and why
type Failure struct {
	Source string
	Err    error
}

// Report is the outcome of one orchestrator run
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    []SourceReport
	Failures   []Failure
}

// Totals aggregates counts across every source
type Totals struct {
	Sources           int `json:"sources"`
	FailedSources     int `json:"failed_sources"`
	Blocks            int `json:"blocks"`
	Inserted          int `json:"inserted"`
	Updated           int `json:"updated"`
	ParseErrors       int `json:"parse_errors"`
	ValidationErrors  int `json:"validation_errors"`
	PersistenceErrors int `json:"persistence_errors"`
}

// Totals sums per-source counts
func (r *Report) Totals() Totals {
	t := Totals{Sources: len(r.Sources), FailedSources: len(r.Failures)}
	for _, s := range r.Sources {
		t.Blocks += s.Blocks
		t.Inserted += s.Counts[OutcomeInserted]
		t.Updated += s.Counts[OutcomeUpdated]
		t.ParseErrors += s.Counts[OutcomeParseError]
		t.ValidationErrors += s.Counts[OutcomeValidationError]
		t.PersistenceErrors += s.Counts[OutcomePersistenceError]
	}
	return t
}

// Duration is the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status is "ok" when every adapter succeeded, "failed" when all of them
// failed and "partial" otherwise.
func (r *Report) Status() string {
	switch {
	case len(r.Failures) == 0:
		return "ok"
	case len(r.Failures) == len(r.Sources):
		return "failed"
	default:
		return "partial"
	}
}

// Inserted returns the records first seen in this run, in source order
func (r *Report) Inserted() []exam.Record {
	var out []exam.Record
	for _, s := range r.Sources {
		for _, item := range s.Items {
			if item.Outcome == OutcomeInserted && item.Record != nil {
				out = append(out, *item.Record)
			}
		}
	}
	return out
}
