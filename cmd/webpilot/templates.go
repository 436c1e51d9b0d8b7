package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/webpilot/webpilot/pkg/plan"
)

func templatesCommand() *cli.Command {
	return &cli.Command{
		Name:    "templates",
		Aliases: []string{"t"},
		Usage:   "List the plan template catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "show",
				Usage: "Print the step graph of one template",
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			if name := command.String("show"); name != "" {
				return showTemplate(name)
			}

			for _, name := range plan.Templates() {
				tmpl, _ := plan.TemplateByName(name)
				fmt.Printf("%-24s %s (%d steps)\n", name, tmpl.Description, len(tmpl.Steps))
			}

			return nil
		},
	}
}

func showTemplate(name string) error {
	p, err := plan.NewBuilder().FromTemplate(name, name)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Println(plan.Visualize(p))

	return nil
}
