package executor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/webpilot/webpilot/pkg/browser"
	"github.com/webpilot/webpilot/pkg/memory"
	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/reliability"
)

// elementKind maps a step kind onto the memory store's element taxonomy.
func elementKind(kind models.StepKind) string {
	switch kind {
	case models.StepKindClick:
		return "button"
	case models.StepKindType:
		return "input"
	case models.StepKindSelect:
		return "select"
	default:
		return "element"
	}
}

// executeStep runs one step through its type-specific handler and records
// status and result on the step. Steps never panic outward: any failure
// becomes a failed result.
func (e *Executor) executeStep(ctx context.Context, p *models.Plan, step *models.Step, state *runState, logger *slog.Logger) {
	step.Status = models.StepStatusRunning

	stepLogger := logger.With("step_id", step.ID, "kind", step.Kind)
	stepLogger.Info("executing step", "name", step.Name, "locator", step.Locator)

	var result models.StepResult

	switch step.Kind {
	case models.StepKindNavigate:
		result = e.handleNavigate(ctx, step)
	case models.StepKindClick:
		result = e.handleRetryable(ctx, step, state, stepLogger)
	case models.StepKindType:
		result = e.handleRetryable(ctx, step, state, stepLogger)
	case models.StepKindSelect:
		result = e.handleSelect(ctx, step)
	case models.StepKindWait:
		result = e.handleWait(ctx, step)
	case models.StepKindVerify:
		result = e.handleVerify(ctx, step)
	case models.StepKindScreenshot:
		result = e.handleScreenshot(ctx, step)
	case models.StepKindExtract:
		result = e.handleExtract(ctx, step, state)
	default:
		result = models.StepResult{Success: false, Error: fmt.Sprintf("unknown step kind: %s", step.Kind)}
	}

	step.Result = &result

	if result.Success {
		step.Status = models.StepStatusSuccess
		stepLogger.Info("step succeeded")
	} else {
		step.Status = models.StepStatusFailed
		stepLogger.Warn("step failed", "error", result.Error)
	}
}

func (e *Executor) handleNavigate(ctx context.Context, step *models.Step) models.StepResult {
	if step.Value == "" {
		return models.StepResult{Success: false, Error: "no target URL provided"}
	}

	if err := e.driver.Navigate(ctx, step.Value); err != nil {
		return models.StepResult{Success: false, Error: err.Error()}
	}

	return models.StepResult{Success: true}
}

// handleRetryable covers click and type: memory-biased locator choice, then
// the reliability layer, then outcome recording.
func (e *Executor) handleRetryable(ctx context.Context, step *models.Step, state *runState, logger *slog.Logger) models.StepResult {
	if step.Locator == "" {
		return models.StepResult{Success: false, Error: "no locator provided"}
	}

	if step.Kind == models.StepKindType && step.Value == "" {
		return models.StepResult{Success: false, Error: "no value provided"}
	}

	kind := elementKind(step.Kind)

	e.substituteAvoidedLocator(ctx, step, state, kind, logger)

	var result reliability.Result

	if e.retryer != nil {
		meta := e.elementMeta(ctx, step.Locator)

		switch step.Kind {
		case models.StepKindClick:
			result = e.retryer.Click(ctx, step.Locator, meta)
		case models.StepKindType:
			result = e.retryer.Type(ctx, step.Locator, step.Value, meta)
		}
	} else {
		var err error

		switch step.Kind {
		case models.StepKindClick:
			err = e.driver.Click(ctx, step.Locator)
		case models.StepKindType:
			err = e.driver.Type(ctx, step.Locator, step.Value)
		}

		result = reliability.Result{Success: err == nil, Attempts: 1, Locator: step.Locator}
		if err != nil {
			result.Error = err.Error()
		}
	}

	step.RetryCount = result.Attempts

	e.recordOutcome(ctx, state, kind, result, logger)

	return models.StepResult{Success: result.Success, Error: result.Error}
}

// substituteAvoidedLocator swaps the step's locator for the best remembered
// one when the memory store reports the current locator as repeatedly
// failing on this page.
func (e *Executor) substituteAvoidedLocator(ctx context.Context, step *models.Step, state *runState, kind string, logger *slog.Logger) {
	if e.memory == nil || state.pageURL == "" {
		return
	}

	pageKey := memory.PageKey(state.pageURL)

	avoid, err := e.memory.ShouldAvoidLocator(ctx, pageKey, kind, step.Locator)
	if err != nil {
		logger.Warn("memory lookup failed", "error", err)

		return
	}

	if !avoid {
		return
	}

	best, err := e.memory.BestLocators(ctx, pageKey, kind, bestLocatorLimit)
	if err != nil || len(best) == 0 {
		return
	}

	logger.Info("substituting remembered locator", "from", step.Locator, "to", best[0])
	step.Locator = best[0]
}

func (e *Executor) recordOutcome(ctx context.Context, state *runState, kind string, result reliability.Result, logger *slog.Logger) {
	if e.memory == nil || state.pageURL == "" {
		return
	}

	err := e.memory.RecordOutcome(ctx, memory.PageKey(state.pageURL), kind, result.Locator, result.Success, result.Error)
	if err != nil {
		logger.Warn("failed to record locator outcome", "error", err)
	}
}

// elementMeta is best effort: when the element cannot be inspected the
// reliability layer simply has no healing material.
func (e *Executor) elementMeta(ctx context.Context, locator string) *browser.ElementMeta {
	meta, err := e.driver.ElementMeta(ctx, locator)
	if err != nil {
		return nil
	}

	return meta
}

// handleSelect goes straight to the driver. Select actions bypass the
// reliability layer and the memory store; see the documented asymmetry in
// DESIGN.md.
func (e *Executor) handleSelect(ctx context.Context, step *models.Step) models.StepResult {
	if step.Locator == "" || step.Value == "" {
		return models.StepResult{Success: false, Error: "missing locator or value"}
	}

	if err := e.driver.Select(ctx, step.Locator, step.Value); err != nil {
		return models.StepResult{Success: false, Error: err.Error()}
	}

	return models.StepResult{Success: true}
}

func (e *Executor) handleWait(ctx context.Context, step *models.Step) models.StepResult {
	d, err := waitDuration(step.Value)
	if err != nil {
		return models.StepResult{Success: false, Error: "malformed wait duration: " + err.Error()}
	}

	if !sleepCtx(ctx, d) {
		return models.StepResult{Success: false, Error: "wait interrupted: " + ctx.Err().Error()}
	}

	return models.StepResult{Success: true}
}

func (e *Executor) handleVerify(ctx context.Context, step *models.Step) models.StepResult {
	if step.Expected == "" {
		return models.StepResult{Success: false, Error: "no expected value provided"}
	}

	text, err := e.driver.PageText(ctx)
	if err != nil {
		return models.StepResult{Success: false, Error: err.Error()}
	}

	if !strings.Contains(strings.ToLower(text), strings.ToLower(step.Expected)) {
		return models.StepResult{
			Success: false,
			Error:   fmt.Sprintf("expected %q not found in page content", step.Expected),
		}
	}

	return models.StepResult{Success: true, Verified: true}
}

func (e *Executor) handleScreenshot(ctx context.Context, step *models.Step) models.StepResult {
	filename := step.Value
	if filename == "" {
		filename = step.ID + ".png"
	}

	path := filepath.Join(e.screenshotDir, filename)

	if err := e.driver.Screenshot(ctx, path); err != nil {
		return models.StepResult{Success: false, Error: err.Error()}
	}

	return models.StepResult{Success: true, File: path}
}

func (e *Executor) handleExtract(ctx context.Context, step *models.Step, state *runState) models.StepResult {
	if step.Locator == "" {
		return models.StepResult{Success: false, Error: "no locator provided"}
	}

	text, err := e.driver.ElementText(ctx, step.Locator)
	if err != nil {
		return models.StepResult{Success: false, Error: err.Error()}
	}

	state.extracted[step.ID] = text

	return models.StepResult{Success: true, Extracted: text}
}
