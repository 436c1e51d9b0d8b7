package models

// Plan is an ordered collection of steps forming a dependency graph. Step
// order is for display only; execution order is governed by dependency
// resolution.
type Plan struct {
	ID          string   `json:"id"          validate:"required"`
	Name        string   `json:"name"        validate:"required"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	Steps       []*Step  `json:"steps"`
}

// Progress summarizes how far a plan has advanced.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	Pending    int     `json:"pending"`
	Percentage float64 `json:"percentage"`
}

// StepByID returns the step with the given id.
func (p *Plan) StepByID(id string) (*Step, bool) {
	for _, step := range p.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return nil, false
}

// ExecutableSteps returns the frontier: every pending step whose dependencies
// are all in completed. Frontier members share no dependency edges with each
// other.
func (p *Plan) ExecutableSteps(completed map[string]struct{}) []*Step {
	frontier := make([]*Step, 0)

	for _, step := range p.Steps {
		if step.CanExecute(completed) {
			frontier = append(frontier, step)
		}
	}

	return frontier
}

// IsComplete reports whether every step reached success or was skipped.
func (p *Plan) IsComplete() bool {
	for _, step := range p.Steps {
		if step.Status != StepStatusSuccess && step.Status != StepStatusSkipped {
			return false
		}
	}

	return true
}

// HasFailed reports whether any step failed.
func (p *Plan) HasFailed() bool {
	for _, step := range p.Steps {
		if step.Status == StepStatusFailed {
			return true
		}
	}

	return false
}

// Dependents counts the steps that list id in their depends_on set. A step
// with two or more dependents is critical: its failure orphans the subtree
// below it.
func (p *Plan) Dependents(id string) int {
	count := 0

	for _, step := range p.Steps {
		for _, dep := range step.DependsOn {
			if dep == id {
				count++

				break
			}
		}
	}

	return count
}

// Progress computes step counts and the success percentage.
func (p *Plan) Progress() Progress {
	progress := Progress{Total: len(p.Steps)}

	for _, step := range p.Steps {
		switch step.Status {
		case StepStatusSuccess:
			progress.Completed++
		case StepStatusFailed:
			progress.Failed++
		case StepStatusPending:
			progress.Pending++
		}
	}

	if progress.Total > 0 {
		progress.Percentage = float64(progress.Completed) / float64(progress.Total) * 100
	}

	return progress
}

// Reset returns every step to pending so the plan can be executed again, for
// example on a schedule.
func (p *Plan) Reset() {
	for _, step := range p.Steps {
		step.Status = StepStatusPending
		step.Result = nil
		step.RetryCount = 0
	}
}
