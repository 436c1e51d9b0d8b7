package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/webpilot/webpilot/pkg/cmd"
	"github.com/webpilot/webpilot/pkg/log"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "webpilot-api",
		Usage:                 "Create and manage web test plans",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "data-url",
				Usage:   "Directory for stored plans and run results",
				Value:   "./data",
				Sources: cli.EnvVars("DATA_URL"),
			},
			&cli.BoolFlag{
				Name:    "enable-runner",
				Usage:   "Allow triggering plan runs through the API (requires a local browser)",
				Sources: cli.EnvVars("ENABLE_RUNNER"),
			},
			&cli.StringFlag{
				Name:    "memory-url",
				Usage:   "Locator memory store for API-triggered runs: a SQLite path or a redis:// URL",
				Sources: cli.EnvVars("MEMORY_URL"),
			},
			&cli.BoolFlag{
				Name:    "headless",
				Usage:   "Run the browser headless for API-triggered runs",
				Value:   true,
				Sources: cli.EnvVars("HEADLESS"),
			},
			&cli.DurationFlag{
				Name:  "action-timeout",
				Usage: "Per-action browser timeout for API-triggered runs",
				Value: 30 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing webpilot API")

			persistence := cmd.NewPersistence(command.String("data-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var runner *browserRunner

			if command.Bool("enable-runner") {
				runner = &browserRunner{
					logger:        logger,
					memoryURL:     command.String("memory-url"),
					headless:      command.Bool("headless"),
					actionTimeout: command.Duration("action-timeout"),
				}
			}

			api := NewAPI(logger, persistence, runnerOrNil(runner))

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
