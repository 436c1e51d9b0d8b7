// Package executor schedules plan steps over their dependency graph and
// drives the browser session through the reliability layer.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/webpilot/webpilot/pkg/browser"
	"github.com/webpilot/webpilot/pkg/eventbus"
	"github.com/webpilot/webpilot/pkg/events"
	"github.com/webpilot/webpilot/pkg/memory"
	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/plan"
	"github.com/webpilot/webpilot/pkg/reliability"
)

const (
	// failureRatio is the fraction of failed steps above which the run aborts.
	failureRatio = 0.5
	// defaultWait is used by wait steps that carry no value.
	defaultWait = 2 * time.Second
	// stepDelay is the pause between steps within one tick, giving the page
	// time to settle after a mutation.
	stepDelay = 500 * time.Millisecond
	// bestLocatorLimit bounds how many remembered locators are considered
	// when substituting an avoided one.
	bestLocatorLimit = 3
)

// Executor runs one plan at a time against a single browser session. The
// frontier at each tick is executed sequentially: the session is a
// single-writer resource and concurrent DOM mutations would race.
type Executor struct {
	driver        browser.Driver
	retryer       *reliability.Retryer
	memory        memory.Store
	bus           eventbus.EventBus
	logger        *slog.Logger
	screenshotDir string
	delay         time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithMemory attaches a locator memory store. When set, locators the store
// flags as repeatedly failing are substituted with the best-known
// alternative before the first attempt, and every click/type outcome is
// recorded back.
func WithMemory(store memory.Store) Option {
	return func(e *Executor) { e.memory = store }
}

// WithRetryPolicy replaces the default reliability policy.
func WithRetryPolicy(policy reliability.Policy) Option {
	return func(e *Executor) {
		e.retryer = reliability.NewRetryer(e.driver, policy, e.logger)
	}
}

// WithoutRetry disables the reliability layer; click and type go straight to
// the driver.
func WithoutRetry() Option {
	return func(e *Executor) { e.retryer = nil }
}

// WithEventBus publishes run lifecycle events on the given bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(e *Executor) { e.bus = bus }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithScreenshotDir sets where screenshot steps write their images.
func WithScreenshotDir(dir string) Option {
	return func(e *Executor) { e.screenshotDir = dir }
}

// WithStepDelay overrides the settle pause between steps. Mostly for tests.
func WithStepDelay(d time.Duration) Option {
	return func(e *Executor) { e.delay = d }
}

func New(driver browser.Driver, opts ...Option) *Executor {
	e := &Executor{
		driver:        driver,
		logger:        slog.Default(),
		screenshotDir: "screenshots",
		delay:         stepDelay,
	}

	e.retryer = reliability.NewRetryer(driver, reliability.DefaultPolicy(), e.logger)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RetryStats exposes the reliability layer's aggregate statistics.
func (e *Executor) RetryStats() reliability.Stats {
	if e.retryer == nil {
		return reliability.Stats{}
	}

	return e.retryer.Stats()
}

// runState is the per-run scheduling state. One run owns one state object;
// nothing is shared across runs.
type runState struct {
	runID     string
	pageURL   string
	completed map[string]struct{}
	failed    map[string]struct{}
	extracted map[string]string
}

// Run executes the plan until it completes, stalls, or aborts. Every outcome,
// including aborts, is expressed in the returned result rather than an error.
func (e *Executor) Run(ctx context.Context, p *models.Plan, pageURL string) *models.RunResult {
	state := &runState{
		runID:     "run-" + uuid.New().String()[:8],
		pageURL:   pageURL,
		completed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
		extracted: make(map[string]string),
	}

	logger := e.logger.With("plan_id", p.ID, "run_id", state.runID)
	logger.Info("starting plan execution",
		"plan_name", p.Name, "total_steps", len(p.Steps), "url", pageURL)

	started := time.Now()

	e.publish(ctx, state, p, events.RunStarted{
		PlanName:   p.Name,
		TotalSteps: len(p.Steps),
		TargetURL:  pageURL,
	})

	status, reason, blocked := e.loop(ctx, p, state, logger)

	result := e.buildResult(p, state, status, reason, blocked, started)

	logger.Info("plan execution finished",
		"status", result.Status,
		"completed", result.Completed,
		"failed", result.Failed,
		"success_rate", fmt.Sprintf("%.1f%%", result.SuccessRate),
		"duration", result.Duration)

	e.publish(ctx, state, p, events.RunFinished{
		Status:      result.Status,
		Completed:   result.Completed,
		Failed:      result.Failed,
		SuccessRate: result.SuccessRate,
		Duration:    result.Duration,
	})

	return result
}

// loop is the scheduling loop: compute the frontier, execute it, decide
// whether to continue.
func (e *Executor) loop(ctx context.Context, p *models.Plan, state *runState, logger *slog.Logger) (models.RunStatus, string, []models.BlockedStep) {
	for !p.IsComplete() {
		if err := ctx.Err(); err != nil {
			return models.RunStatusAborted, "context cancelled: " + err.Error(), nil
		}

		if e.tooManyFailures(p, state) {
			return models.RunStatusAborted,
				fmt.Sprintf("failure ratio exceeded %.0f%% of %d steps", failureRatio*100, len(p.Steps)), nil
		}

		frontier := p.ExecutableSteps(state.completed)
		if len(frontier) == 0 {
			blocked := e.blockedSteps(p, state)
			if len(blocked) == 0 {
				// Every step reached a terminal state; failures stayed under
				// the abort thresholds.
				return models.RunStatusCompleted, "", nil
			}

			logger.Warn("plan execution blocked", "blocked_steps", len(blocked))

			return models.RunStatusBlocked, "remaining steps have unsatisfiable dependencies", blocked
		}

		for _, step := range frontier {
			e.executeStep(ctx, p, step, state, logger)

			switch step.Status {
			case models.StepStatusSuccess:
				state.completed[step.ID] = struct{}{}
				e.publish(ctx, state, p, events.StepFinished{
					StepID: step.ID, StepName: step.Name, Kind: step.Kind, Attempts: step.RetryCount,
				})
			case models.StepStatusFailed:
				state.failed[step.ID] = struct{}{}
				critical := p.Dependents(step.ID) >= 2

				e.publish(ctx, state, p, events.StepFailed{
					StepID: step.ID, StepName: step.Name, Kind: step.Kind,
					Attempts: step.RetryCount, Error: errMessage(step), Critical: critical,
				})

				if critical {
					logger.Error("critical step failed, aborting run",
						"step_id", step.ID, "dependents", p.Dependents(step.ID))

					return models.RunStatusAborted,
						fmt.Sprintf("critical step %s failed", step.ID), nil
				}
			}

			if !sleepCtx(ctx, e.delay) {
				return models.RunStatusAborted, "context cancelled", nil
			}
		}
	}

	return models.RunStatusCompleted, "", nil
}

func (e *Executor) tooManyFailures(p *models.Plan, state *runState) bool {
	return float64(len(state.failed)) > float64(len(p.Steps))*failureRatio
}

// blockedSteps reports every pending step together with the dependency ids
// still unsatisfied.
func (e *Executor) blockedSteps(p *models.Plan, state *runState) []models.BlockedStep {
	blocked := make([]models.BlockedStep, 0)

	for _, step := range p.Steps {
		if step.Status != models.StepStatusPending {
			continue
		}

		missing := make([]string, 0, len(step.DependsOn))

		for _, dep := range step.DependsOn {
			if _, ok := state.completed[dep]; !ok {
				missing = append(missing, dep)
			}
		}

		blocked = append(blocked, models.BlockedStep{
			StepID:      step.ID,
			Name:        step.Name,
			MissingDeps: missing,
		})
	}

	return blocked
}

func (e *Executor) buildResult(p *models.Plan, state *runState, status models.RunStatus, reason string, blocked []models.BlockedStep, started time.Time) *models.RunResult {
	progress := p.Progress()

	reports := make([]models.StepReport, 0, len(p.Steps))
	for _, step := range p.Steps {
		reports = append(reports, models.StepReport{
			ID:         step.ID,
			Name:       step.Name,
			Kind:       step.Kind,
			Status:     step.Status,
			Result:     step.Result,
			RetryCount: step.RetryCount,
		})
	}

	return &models.RunResult{
		ID:          state.runID,
		PlanID:      p.ID,
		PlanName:    p.Name,
		Status:      status,
		Reason:      reason,
		StartedAt:   started,
		Duration:    time.Since(started),
		Total:       progress.Total,
		Completed:   progress.Completed,
		Failed:      progress.Failed,
		Pending:     progress.Pending,
		SuccessRate: progress.Percentage,
		Extracted:   state.extracted,
		Blocked:     blocked,
		Steps:       reports,
	}
}

func (e *Executor) publish(ctx context.Context, state *runState, p *models.Plan, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	base := events.BaseEvent{
		ID:        e.bus.GenerateID(),
		Type:      event.GetType(),
		Timestamp: time.Now(),
		RunID:     state.runID,
		PlanID:    p.ID,
	}

	switch ev := event.(type) {
	case events.RunStarted:
		ev.BaseEvent = base
		event = ev
	case events.RunFinished:
		ev.BaseEvent = base
		event = ev
	case events.StepFinished:
		ev.BaseEvent = base
		event = ev
	case events.StepFailed:
		ev.BaseEvent = base
		event = ev
	}

	if err := e.bus.Publish(ctx, state.runID, event); err != nil {
		e.logger.Warn("failed to publish run event", "event_type", event.GetType(), "error", err)
	}
}

func errMessage(step *models.Step) string {
	if step.Result == nil {
		return ""
	}

	return step.Result.Error
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// waitDuration resolves a wait step's pause, defaulting when no value is set.
func waitDuration(value string) (time.Duration, error) {
	if value == "" {
		return defaultWait, nil
	}

	return plan.ParseWaitValue(value)
}
