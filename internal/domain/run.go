package domain

import "time"

// RunState represents the lifecycle state of a crawl run.
type RunState string

const (
	// RunStateStarting means the run is loading prior state.
	RunStateStarting RunState = "starting"
	// RunStatePaginating means the run is fetching catalogue pages.
	RunStatePaginating RunState = "paginating"
	// RunStateDiffing means the run is comparing snapshots.
	RunStateDiffing RunState = "diffing"
	// RunStateReporting means the run is persisting and publishing results.
	RunStateReporting RunState = "reporting"
	// RunStateCompleted is the successful terminal state.
	RunStateCompleted RunState = "completed"
	// RunStateFailed is the unsuccessful terminal state. Partial progress
	// (the checkpoint) survives for resume.
	RunStateFailed RunState = "failed"
)

// runTransitions defines the allowed state machine edges. The run never
// regresses; Failed is reachable from every non-terminal state.
var runTransitions = map[RunState][]RunState{
	RunStateStarting:   {RunStatePaginating, RunStateFailed},
	RunStatePaginating: {RunStateDiffing, RunStateFailed},
	RunStateDiffing:    {RunStateReporting, RunStateFailed},
	RunStateReporting:  {RunStateCompleted, RunStateFailed},
}

// CanTransitionTo reports whether the state machine allows moving from s
// to next.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range runTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a terminal state.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

// FailedRecord describes a record that could not be fetched or parsed
// during a run. Failed records are excluded from deletion detection.
type FailedRecord struct {
	ID       string `json:"id,omitempty"`
	URL      string `json:"url"`
	Page     int    `json:"page"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason"`
}

// RunSummary aggregates the outcome of one crawl run.
type RunSummary struct {
	RunID         string         `json:"run_id"`
	State         RunState       `json:"state"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
	PagesCrawled  int            `json:"pages_crawled"`
	TotalRecords  int            `json:"total_records"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	Skipped       int            `json:"skipped"`
	Changes       []ChangeRecord `json:"changes"`
	FailedRecords []FailedRecord `json:"failed_records,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

// CountByType returns the number of changes of the given type.
func (s *RunSummary) CountByType(t ChangeType) int {
	count := 0
	for i := range s.Changes {
		if s.Changes[i].ChangeType == t {
			count++
		}
	}
	return count
}
