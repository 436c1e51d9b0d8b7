package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/webpilot/webpilot/pkg/browser"
	"github.com/webpilot/webpilot/pkg/cmd"
	"github.com/webpilot/webpilot/pkg/executor"
	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/web"
)

// browserRunner executes API-triggered runs in a fresh browser session per
// request. Runs are serialized by the browser, not the API layer, so slow
// plans hold the request open.
type browserRunner struct {
	logger        *slog.Logger
	memoryURL     string
	headless      bool
	actionTimeout time.Duration
}

func (r *browserRunner) Run(ctx context.Context, p *models.Plan, pageURL string) *models.RunResult {
	session, err := browser.NewSession(ctx,
		browser.WithHeadless(r.headless),
		browser.WithActionTimeout(r.actionTimeout),
	)
	if err != nil {
		return abortedResult(p, "failed to start browser session: "+err.Error())
	}

	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn("failed to close browser session", "error", err)
		}
	}()

	opts := []executor.Option{executor.WithLogger(r.logger)}

	memStore, err := cmd.NewMemoryStore(ctx, r.memoryURL)
	if err != nil {
		r.logger.Warn("failed to open memory store, continuing without it", "error", err)
	} else if memStore != nil {
		defer func() {
			if err := memStore.Close(); err != nil {
				r.logger.Warn("failed to close memory store", "error", err)
			}
		}()

		opts = append(opts, executor.WithMemory(memStore))
	}

	return executor.New(session, opts...).Run(ctx, p, pageURL)
}

// abortedResult reports a run that never reached the scheduler.
func abortedResult(p *models.Plan, reason string) *models.RunResult {
	return &models.RunResult{
		ID:        "run-failed",
		PlanID:    p.ID,
		PlanName:  p.Name,
		Status:    models.RunStatusAborted,
		Reason:    reason,
		StartedAt: time.Now(),
		Total:     len(p.Steps),
		Pending:   len(p.Steps),
	}
}

// runnerOrNil avoids handing the API a typed-nil Runner interface.
func runnerOrNil(r *browserRunner) web.Runner {
	if r == nil {
		return nil
	}

	return r
}
