package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "webpilot",
		Usage:                 "Build and execute multi-step web test plans",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			runCommand(),
			templatesCommand(),
			validateCommand(),
			scheduleCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
