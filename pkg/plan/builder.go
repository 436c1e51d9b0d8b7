// Package plan builds test plans from templates or ad-hoc step lists and
// validates their dependency graphs before they reach the executor.
package plan

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/webpilot/webpilot/pkg/models"
)

var (
	ErrTemplateNotFound   = errors.New("template not found")
	ErrDuplicateStepID    = errors.New("duplicate step id")
	ErrDanglingDependency = errors.New("dependency references unknown step")
	ErrDependencyCycle    = errors.New("dependency cycle")
	ErrUnknownStepKind    = errors.New("unknown step kind")
	ErrMalformedDuration  = errors.New("malformed wait duration")
)

// IsTemplateNotFound checks whether an error indicates an unknown template.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// StepSpec is the external description of one step, matching the persisted
// JSON field layout.
type StepSpec struct {
	ID        string          `json:"id"       validate:"required"`
	Name      string          `json:"name"     validate:"required"`
	Kind      models.StepKind `json:"type"     validate:"required"`
	Locator   string          `json:"selector,omitempty"`
	Value     string          `json:"value,omitempty"`
	Expected  string          `json:"expected,omitempty"`
	DependsOn []string        `json:"depends_on"`
}

// Builder constructs plans and rejects configuration errors (dangling
// dependencies, cycles, malformed durations) before execution.
type Builder struct {
	validate *validator.Validate
}

func NewBuilder() *Builder {
	return &Builder{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// FromTemplate instantiates one of the named templates from the catalog.
// Unknown names yield ErrTemplateNotFound.
func (b *Builder) FromTemplate(name, planID string) (*models.Plan, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}

	return b.FromSteps(planID, tmpl.Name, tmpl.Description, tmpl.Steps)
}

// FromSteps builds an ad-hoc plan from explicit step specifications.
func (b *Builder) FromSteps(planID, name, description string, specs []StepSpec) (*models.Plan, error) {
	plan := &models.Plan{
		ID:          planID,
		Name:        name,
		Description: description,
		Priority:    "medium",
		Steps:       make([]*models.Step, 0, len(specs)),
	}

	for _, spec := range specs {
		if err := b.validate.Struct(spec); err != nil {
			return nil, fmt.Errorf("invalid step spec %q: %w", spec.ID, err)
		}

		deps := spec.DependsOn
		if deps == nil {
			deps = []string{}
		}

		plan.Steps = append(plan.Steps, &models.Step{
			ID:        spec.ID,
			Name:      spec.Name,
			Kind:      spec.Kind,
			Action:    string(spec.Kind),
			Locator:   spec.Locator,
			Value:     spec.Value,
			Expected:  spec.Expected,
			DependsOn: deps,
			Status:    models.StepStatusPending,
		})
	}

	if err := b.validate.Struct(plan); err != nil {
		return nil, fmt.Errorf("invalid plan %q: %w", planID, err)
	}

	if err := Validate(plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// Validate checks the structural invariants of a plan: unique step ids, no
// dangling dependency references, an acyclic dependency relation, known step
// kinds, and parseable wait durations.
func Validate(p *models.Plan) error {
	known := make(map[string]*models.Step, len(p.Steps))

	for _, step := range p.Steps {
		if _, exists := known[step.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateStepID, step.ID)
		}

		known[step.ID] = step
	}

	for _, step := range p.Steps {
		if !step.Kind.Valid() {
			return fmt.Errorf("%w: step %s has kind %q", ErrUnknownStepKind, step.ID, step.Kind)
		}

		if step.Kind == models.StepKindWait && step.Value != "" {
			if _, err := ParseWaitValue(step.Value); err != nil {
				return fmt.Errorf("%w: step %s: %q", ErrMalformedDuration, step.ID, step.Value)
			}
		}

		for _, dep := range step.DependsOn {
			if _, ok := known[dep]; !ok {
				return fmt.Errorf("%w: step %s depends on %s", ErrDanglingDependency, step.ID, dep)
			}
		}
	}

	return checkAcyclic(p)
}

// checkAcyclic runs a colored depth-first search over the dependency edges.
func checkAcyclic(p *models.Plan) error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)

	color := make(map[string]int, len(p.Steps))

	var visit func(id string) error

	visit = func(id string) error {
		color[id] = gray

		step, _ := p.StepByID(id)
		for _, dep := range step.DependsOn {
			switch color[dep] {
			case gray:
				return fmt.Errorf("%w: %s -> %s", ErrDependencyCycle, id, dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		color[id] = black

		return nil
	}

	for _, step := range p.Steps {
		if color[step.ID] == white {
			if err := visit(step.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

// ParseWaitValue interprets a wait step value as either a bare number of
// seconds ("2") or a Go duration string ("1500ms").
func ParseWaitValue(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative wait: %d", seconds)
		}

		return time.Duration(seconds) * time.Second, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}

	if d < 0 {
		return 0, fmt.Errorf("negative wait: %s", d)
	}

	return d, nil
}
