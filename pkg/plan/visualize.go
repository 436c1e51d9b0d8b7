package plan

import (
	"fmt"
	"strings"

	"github.com/webpilot/webpilot/pkg/models"
)

var statusMarkers = map[models.StepStatus]string{
	models.StepStatusPending: "[ ]",
	models.StepStatusRunning: "[~]",
	models.StepStatusSuccess: "[x]",
	models.StepStatusFailed:  "[!]",
	models.StepStatusSkipped: "[-]",
}

// Visualize renders a text view of the plan: status markers, dependency
// edges, locators and values.
func Visualize(p *models.Plan) string {
	var b strings.Builder

	progress := p.Progress()

	fmt.Fprintf(&b, "Plan: %s (%s)\n", p.Name, p.ID)

	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}

	fmt.Fprintf(&b, "Progress: %d/%d (%.1f%%)\n\n", progress.Completed, progress.Total, progress.Percentage)

	for i, step := range p.Steps {
		marker, ok := statusMarkers[step.Status]
		if !ok {
			marker = "[?]"
		}

		fmt.Fprintf(&b, "%2d. %s %s (%s)\n", i+1, marker, step.Name, step.Kind)

		if len(step.DependsOn) > 0 {
			fmt.Fprintf(&b, "      depends on: %s\n", strings.Join(step.DependsOn, ", "))
		}

		if step.Locator != "" {
			fmt.Fprintf(&b, "      locator: %s\n", step.Locator)
		}

		if step.Value != "" {
			fmt.Fprintf(&b, "      value: %s\n", step.Value)
		}

		if step.Result != nil && step.Result.Error != "" {
			fmt.Fprintf(&b, "      error: %s\n", step.Result.Error)
		}
	}

	return b.String()
}
