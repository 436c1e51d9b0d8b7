package web

import "github.com/webpilot/webpilot/pkg/plan"

// CreatePlanRequest is the payload for creating an ad-hoc plan.
type CreatePlanRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"    validate:"omitempty,oneof=low medium high"`
	Tags        []string        `json:"tags"`
	Steps       []plan.StepSpec `json:"steps"       validate:"required,min=1"`
}

// UpdatePlanRequest carries a partial plan update. Steps are immutable once a
// plan exists; replace the plan to change them.
type UpdatePlanRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,min=3"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"    validate:"omitempty,oneof=low medium high"`
	Tags        []string `json:"tags"`
}

// InstantiateTemplateRequest names the plan a template is instantiated into.
type InstantiateTemplateRequest struct {
	PlanID string `json:"plan_id"`
}

// RunPlanRequest is the payload for triggering a plan run.
type RunPlanRequest struct {
	URL string `json:"url" validate:"required,url"`
}
