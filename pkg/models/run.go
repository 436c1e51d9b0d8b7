package models

import "time"

// RunStatus is the terminal outcome of one executor pass over a plan.
type RunStatus string

const (
	// RunStatusCompleted means the run executed every step to a terminal
	// state without stalling or aborting. Individual steps may still have
	// failed within the abort thresholds.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusBlocked means pending steps remained whose dependencies can
	// never be satisfied, usually because an ancestor failed.
	RunStatusBlocked RunStatus = "blocked"
	// RunStatusAborted means the run stopped early: a critical step failed,
	// the failure ratio crossed the threshold, or the context was cancelled.
	RunStatusAborted RunStatus = "aborted"
)

// BlockedStep describes a step that can never become executable, together
// with the dependency ids still unsatisfied when the run ended.
type BlockedStep struct {
	StepID      string   `json:"step_id"`
	Name        string   `json:"name"`
	MissingDeps []string `json:"missing_deps"`
}

// StepReport is the per-step slice of a run result.
type StepReport struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       StepKind    `json:"type"`
	Status     StepStatus  `json:"status"`
	Result     *StepResult `json:"result,omitempty"`
	RetryCount int         `json:"retry_count"`
}

// RunResult aggregates the outcome of one plan execution. Every terminal
// condition, including aborts and stalls, is represented here rather than
// returned as an error.
type RunResult struct {
	ID          string            `json:"id"`
	PlanID      string            `json:"plan_id"`
	PlanName    string            `json:"plan_name"`
	Status      RunStatus         `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
	Total       int               `json:"total"`
	Completed   int               `json:"completed"`
	Failed      int               `json:"failed"`
	Pending     int               `json:"pending"`
	SuccessRate float64           `json:"success_rate"`
	Extracted   map[string]string `json:"extracted,omitempty"`
	Blocked     []BlockedStep     `json:"blocked,omitempty"`
	Steps       []StepReport      `json:"steps"`
}
