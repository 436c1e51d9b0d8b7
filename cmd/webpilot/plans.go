package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/webpilot/webpilot/pkg/cmd"
	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/plan"
)

// planDocument mirrors the on-disk plan layout for ad-hoc plan files.
type planDocument struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Steps       []plan.StepSpec `json:"steps"`
}

func planSourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "plan",
			Aliases: []string{"p"},
			Usage:   "Plan source: a JSON file path or the ID of a stored plan",
		},
		&cli.StringFlag{
			Name:    "template",
			Aliases: []string{"t"},
			Usage:   "Instantiate a catalog template instead of loading a plan",
		},
	}
}

// resolvePlan produces the plan to execute from --plan or --template.
func resolvePlan(ctx context.Context, command *cli.Command) (*models.Plan, error) {
	source := command.String("plan")
	template := command.String("template")

	switch {
	case source == "" && template == "":
		return nil, errors.New("either --plan or --template is required")
	case source != "" && template != "":
		return nil, errors.New("--plan and --template are mutually exclusive")
	case template != "":
		return plan.NewBuilder().FromTemplate(template, template)
	}

	if _, err := os.Stat(source); err == nil {
		return loadPlanFile(source)
	}

	p, err := cmd.NewPersistence(command.String("data-url")).Plans().ByID(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("plan %q is neither a readable file nor a stored plan: %w", source, err)
	}

	p.Reset()

	return p, nil
}

// loadPlanFile reads an ad-hoc plan document and runs it through the builder
// so file plans get the same validation as API-created ones.
func loadPlanFile(path string) (*models.Plan, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var doc planDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}

	if doc.ID == "" {
		doc.ID = "file-plan"
	}

	if doc.Name == "" {
		doc.Name = doc.ID
	}

	return plan.NewBuilder().FromSteps(doc.ID, doc.Name, doc.Description, doc.Steps)
}
