// Package models defines the core domain models for multi-step web test plans.
package models

// StepKind represents the type of browser interaction a step performs.
type StepKind string

const (
	StepKindNavigate   StepKind = "navigate"
	StepKindClick      StepKind = "click"
	StepKindType       StepKind = "type"
	StepKindSelect     StepKind = "select"
	StepKindWait       StepKind = "wait"
	StepKindVerify     StepKind = "verify"
	StepKindScreenshot StepKind = "screenshot"
	StepKindExtract    StepKind = "extract"
)

// Valid reports whether k is one of the known step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepKindNavigate, StepKindClick, StepKindType, StepKindSelect,
		StepKindWait, StepKindVerify, StepKindScreenshot, StepKindExtract:
		return true
	}

	return false
}

// RequiresLocator reports whether steps of this kind must carry an element locator.
func (k StepKind) RequiresLocator() bool {
	switch k {
	case StepKindClick, StepKindType, StepKindSelect, StepKindExtract:
		return true
	}

	return false
}

// StepStatus defines the lifecycle states of a step. Transitions only move
// forward; a terminal status is never revisited within one run.
type StepStatus string

const (
	StepStatusPending StepStatus = "pending"
	StepStatusRunning StepStatus = "running"
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// Terminal reports whether the status is an end state.
func (s StepStatus) Terminal() bool {
	return s == StepStatusSuccess || s == StepStatusFailed || s == StepStatusSkipped
}

// StepResult is the structured outcome of the last execution attempt.
type StepResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Extracted string `json:"extracted,omitempty"`
	Verified  bool   `json:"verified,omitempty"`
	File      string `json:"file,omitempty"`
}

// Step is the atomic unit of test work inside a plan.
type Step struct {
	ID         string      `json:"id"          validate:"required"`
	Name       string      `json:"name"        validate:"required"`
	Kind       StepKind    `json:"type"        validate:"required"`
	Action     string      `json:"action"`
	Locator    string      `json:"selector,omitempty"`
	Value      string      `json:"value,omitempty"`
	Expected   string      `json:"expected,omitempty"`
	DependsOn  []string    `json:"depends_on"`
	Status     StepStatus  `json:"status"`
	Result     *StepResult `json:"result,omitempty"`
	RetryCount int         `json:"retry_count"`
}

// CanExecute reports whether the step is eligible to run: it must still be
// pending and every dependency must already be in completed. Pure function;
// the scheduler re-evaluates it on every tick.
func (s *Step) CanExecute(completed map[string]struct{}) bool {
	if s.Status != StepStatusPending {
		return false
	}

	for _, dep := range s.DependsOn {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}

	return true
}
