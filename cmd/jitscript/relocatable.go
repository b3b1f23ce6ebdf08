package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/robbyt/go-jitscript/execution/script"
)

func newRelocatableCmd() *cli.Command {
	return &cli.Command{
		Name:  "relocatable",
		Usage: "Compile without loading and write the object to a file",
		Flags: append(jobFlags(),
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Path of the object file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "reloc",
				Usage: "Relocation model (default, static, pic, dynamic-no-pic)",
				Value: script.RelocDefault.String(),
			},
		),
		Action: relocatableAction,
	}
}

func relocatableAction(ctx context.Context, cmd *cli.Command) error {
	model, err := script.ParseRelocModel(cmd.String("reloc"))
	if err != nil {
		return err
	}
	job, err := loadJob(cmd)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	return withScript(ctx, job, newHandler(cmd), func(s *script.Script) error {
		if err := s.PrepareRelocatable(ctx, output, model, 0); err != nil {
			return compileError(s, err)
		}
		_, err := fmt.Fprintf(cmd.Root().Writer, "wrote %s (%d bytes, %s)\n", output, len(s.Image()), model)
		return err
	})
}
