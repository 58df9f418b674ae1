package seed

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is the per-seeder result of a run.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	StatusNothingToDo RunStatus = "nothing_to_do"
	StatusAborted     RunStatus = "aborted"
	StatusCompleted   RunStatus = "completed"
)

// Result describes what happened to one pending seeder.
type Result struct {
	Seeder   string
	Table    string
	Tag      *string
	Outcome  Outcome
	Records  int
	Duration time.Duration
	Err      error
}

// Report summarises a run.
type Report struct {
	RunID    uuid.UUID
	Tag      *string
	Batch    int
	Status   RunStatus
	Problems []error
	Results  []Result
}

// Count returns the number of results with outcome o.
func (r *Report) Count(o Outcome) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Err returns an error when any seeder failed to apply.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	failed := r.Count(OutcomeFailed)
	if failed == 0 {
		return nil
	}
	var first error
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			first = res.Err
			break
		}
	}
	return fmt.Errorf("%d seeder(s) failed in batch %d: %w", failed, r.Batch, first)
}

// AppliedEvent is published for each applied seeder.
type AppliedEvent struct {
	RunID     uuid.UUID `json:"run_id"`
	Seeder    string    `json:"seeder"`
	Table     string    `json:"table"`
	Batch     int       `json:"batch"`
	Tag       *string   `json:"tag"`
	Records   int       `json:"records"`
	AppliedAt time.Time `json:"applied_at"`
}
