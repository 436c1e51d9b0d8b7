package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/webpilot/webpilot/pkg/browser"
	"github.com/webpilot/webpilot/pkg/cmd"
	"github.com/webpilot/webpilot/pkg/executor"
	"github.com/webpilot/webpilot/pkg/log"
	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/plan"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a plan against a target URL",
		Flags: append(planSourceFlags(),
			&cli.StringFlag{
				Name:     "url",
				Aliases:  []string{"u"},
				Usage:    "Target page URL the plan runs against",
				Required: true,
				Sources:  cli.EnvVars("TARGET_URL"),
			},
			&cli.StringFlag{
				Name:    "data-url",
				Usage:   "Directory for stored plans and run results",
				Value:   "./data",
				Sources: cli.EnvVars("DATA_URL"),
			},
			&cli.StringFlag{
				Name:    "memory-url",
				Usage:   "Locator memory store: a SQLite path or a redis:// URL (empty disables memory)",
				Sources: cli.EnvVars("MEMORY_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for run events (gochannel, kafka; empty disables events)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "Run the browser headless",
				Value: true,
			},
			&cli.DurationFlag{
				Name:  "action-timeout",
				Usage: "Per-action browser timeout",
				Value: 30 * time.Second,
			},
			&cli.StringFlag{
				Name:  "screenshot-dir",
				Usage: "Directory screenshot steps write into",
				Value: "screenshots",
			},
			&cli.BoolFlag{
				Name:  "no-retry",
				Usage: "Disable the retry and selector healing layer",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("run")

			p, err := resolvePlan(ctx, command)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			result, err := executePlan(ctx, command, p, logger)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			printSummary(p, result)

			if result.Status != models.RunStatusCompleted {
				return cli.Exit("run finished with status "+string(result.Status), 1)
			}

			return nil
		},
	}
}

// executePlan builds the browser session and executor from the command flags
// and drives one run, storing the result afterwards.
func executePlan(ctx context.Context, command *cli.Command, p *models.Plan, logger *slog.Logger) (*models.RunResult, error) {
	session, err := browser.NewSession(ctx,
		browser.WithHeadless(command.Bool("headless")),
		browser.WithActionTimeout(command.Duration("action-timeout")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close browser session", "error", err)
		}
	}()

	opts := []executor.Option{
		executor.WithLogger(logger),
		executor.WithScreenshotDir(command.String("screenshot-dir")),
	}

	memStore, err := cmd.NewMemoryStore(ctx, command.String("memory-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	if memStore != nil {
		defer func() {
			if err := memStore.Close(); err != nil {
				logger.Warn("failed to close memory store", "error", err)
			}
		}()

		opts = append(opts, executor.WithMemory(memStore))
	}

	if provider := command.String("event-bus"); provider != "" {
		bus := cmd.NewEventBus(provider, logger)
		defer func() {
			if err := bus.Close(); err != nil {
				logger.Warn("failed to close event bus", "error", err)
			}
		}()

		opts = append(opts, executor.WithEventBus(bus))
	}

	if command.Bool("no-retry") {
		opts = append(opts, executor.WithoutRetry())
	}

	exec := executor.New(session, opts...)

	result := exec.Run(ctx, p, command.String("url"))

	if stats := exec.RetryStats(); stats.Total > 0 {
		logger.Info("retry layer statistics",
			"actions", stats.Total,
			"success_rate", fmt.Sprintf("%.1f%%", stats.SuccessRate),
			"avg_attempts", fmt.Sprintf("%.1f", stats.AvgAttempts))
	}

	persistence := cmd.NewPersistence(command.String("data-url"))
	if err := persistence.Results().Save(ctx, result); err != nil {
		logger.Warn("failed to store run result", "run_id", result.ID, "error", err)
	}

	return result, nil
}

func printSummary(p *models.Plan, result *models.RunResult) {
	fmt.Println(plan.Visualize(p))

	fmt.Printf("Run %s: %s", result.ID, result.Status)

	if result.Reason != "" {
		fmt.Printf(" (%s)", result.Reason)
	}

	fmt.Printf("\n%d/%d steps completed (%.1f%%) in %s\n",
		result.Completed, result.Total, result.SuccessRate, result.Duration.Round(time.Millisecond))

	for _, blocked := range result.Blocked {
		fmt.Printf("  blocked: %s missing %v\n", blocked.StepID, blocked.MissingDeps)
	}

	for id, value := range result.Extracted {
		fmt.Printf("  extracted %s: %s\n", id, value)
	}
}
