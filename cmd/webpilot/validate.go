package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/webpilot/webpilot/pkg/plan"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a plan file without executing it",
		ArgsUsage: "<plan.json>",
		Action: func(_ context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return cli.Exit("a plan file path is required", 1)
			}

			p, err := loadPlanFile(path)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			fmt.Printf("%s: valid (%d steps)\n", path, len(p.Steps))
			fmt.Println(plan.Visualize(p))

			return nil
		},
	}
}
