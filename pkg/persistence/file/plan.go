package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/persistence"
)

// planSchema is checked against every plan document read from disk, so a
// hand-edited file fails loudly instead of producing a half-parsed plan.
const planSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "steps"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "priority": {"type": "string"},
    "tags": {"type": ["array", "null"], "items": {"type": "string"}},
    "progress": {"type": "object"},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "type": {
            "type": "string",
            "enum": ["navigate", "click", "type", "select", "wait", "verify", "screenshot", "extract"]
          },
          "selector": {"type": "string"},
          "value": {"type": "string"},
          "expected": {"type": "string"},
          "depends_on": {"type": "array", "items": {"type": "string"}},
          "status": {
            "type": "string",
            "enum": ["pending", "running", "success", "failed", "skipped"]
          }
        }
      }
    }
  }
}`

// PlanRepository stores one JSON document per plan under <root>/plans.
type PlanRepository struct {
	root   string
	schema *gojsonschema.Schema
}

func NewPlanRepository(root string) *PlanRepository {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(planSchema))
	if err != nil {
		panic("plan schema does not compile: " + err.Error())
	}

	return &PlanRepository{root: root, schema: schema}
}

func (pr *PlanRepository) dir() string {
	return path.Join(pr.root, "plans")
}

// All loads every stored plan, sorted by id.
func (pr *PlanRepository) All(ctx context.Context) ([]*models.Plan, error) {
	jsonFiles, err := fs.Glob(os.DirFS(pr.dir()), "*.json")
	if err != nil || len(jsonFiles) == 0 {
		return []*models.Plan{}, nil
	}

	sort.Strings(jsonFiles)

	plans := make([]*models.Plan, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		p, err := pr.ByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		plans = append(plans, p)
	}

	return plans, nil
}

// ByID loads, validates, and normalizes one plan document.
func (pr *PlanRepository) ByID(_ context.Context, id string) (*models.Plan, error) {
	filePath := filepath.Clean(path.Join(pr.dir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewPlanError("ByID", id, persistence.ErrPlanNotFound)
		}

		return nil, persistence.NewPlanError("ByID", id, err)
	}

	if err := pr.validate(body); err != nil {
		return nil, persistence.NewPlanError("ByID", id, err)
	}

	var p models.Plan

	if err := json.Unmarshal(body, &p); err != nil {
		return nil, persistence.NewPlanError("ByID", id, err)
	}

	normalize(&p)

	return &p, nil
}

// planDocument is the on-disk shape of a plan: the plan itself plus a
// progress snapshot, recomputed from step statuses on every save. Loads
// ignore the snapshot and derive progress from the steps.
type planDocument struct {
	*models.Plan
	Progress models.Progress `json:"progress"`
}

// Save writes the plan as indented JSON, creating the plans directory on
// first use.
func (pr *PlanRepository) Save(_ context.Context, p *models.Plan) error {
	if err := os.MkdirAll(pr.dir(), 0750); err != nil {
		return persistence.NewPlanError("Save", p.ID, err)
	}

	data, err := json.MarshalIndent(planDocument{Plan: p, Progress: p.Progress()}, "", "  ")
	if err != nil {
		return persistence.NewPlanError("Save", p.ID, err)
	}

	filePath := path.Join(pr.dir(), p.ID+".json")

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return persistence.NewPlanError("Save", p.ID, err)
	}

	return nil
}

// Delete removes a stored plan.
func (pr *PlanRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(path.Join(pr.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewPlanError("Delete", id, persistence.ErrPlanNotFound)
		}

		return persistence.NewPlanError("Delete", id, err)
	}

	return nil
}

func (pr *PlanRepository) validate(body []byte) error {
	result, err := pr.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %s", persistence.ErrInvalidPlanDocument, err)
	}

	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}

	return fmt.Errorf("%w: %s", persistence.ErrInvalidPlanDocument, strings.Join(issues, "; "))
}

// normalize fills the fields a hand-written document may omit: steps without
// a status start pending, dependencies default to empty, and the action label
// mirrors the kind.
func normalize(p *models.Plan) {
	for _, step := range p.Steps {
		if step.Status == "" {
			step.Status = models.StepStatusPending
		}

		if step.DependsOn == nil {
			step.DependsOn = []string{}
		}

		if step.Action == "" {
			step.Action = string(step.Kind)
		}
	}
}
