package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/webpilot/webpilot/pkg/log"
	"github.com/webpilot/webpilot/pkg/models"
)

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:    "schedule",
		Aliases: []string{"s"},
		Usage:   "Run a plan on a cron schedule until interrupted",
		Flags: append(planSourceFlags(),
			&cli.StringFlag{
				Name:     "cron",
				Usage:    "Cron expression, e.g. \"0 */2 * * *\"",
				Required: true,
				Sources:  cli.EnvVars("CRON_SCHEDULE"),
			},
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
				Usage:   "Locator memory store: a SQLite path or a redis:// URL",
				Sources: cli.EnvVars("MEMORY_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for run events (gochannel, kafka)",
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
			logger := log.WithModule("schedule")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scheduler := cron.New()

			_, err := scheduler.AddFunc(command.String("cron"), func() {
				// Plans are resolved per tick so edits to a stored plan take
				// effect on the next run.
				p, err := resolvePlan(ctx, command)
				if err != nil {
					logger.Error("failed to resolve plan", "error", err)

					return
				}

				result, err := executePlan(ctx, command, p, logger)
				if err != nil {
					logger.Error("scheduled run failed to start", "error", err)

					return
				}

				if result.Status != models.RunStatusCompleted {
					logger.Warn("scheduled run did not complete",
						"run_id", result.ID, "status", result.Status, "reason", result.Reason)
				}
			})
			if err != nil {
				return cli.Exit("invalid cron expression: "+err.Error(), 1)
			}

			logger.Info("starting scheduler", "cron", command.String("cron"))
			scheduler.Start()

			<-ctx.Done()

			logger.Info("stopping scheduler")
			<-scheduler.Stop().Done()

			return nil
		},
	}
}
