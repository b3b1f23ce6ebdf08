package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/robbyt/go-jitscript/execution/script"
)

func newCompileCmd() *cli.Command {
	return &cli.Command{
		Name:  "compile",
		Usage: "Prepare an executable, loading it from the cache when possible",
		Flags: append(jobFlags(),
			&cli.BoolFlag{
				Name:  "no-cache-load",
				Usage: "Compile even when a valid cache entry exists",
			},
			&cli.BoolFlag{
				Name:  "no-cache-store",
				Usage: "Do not write a cache entry after compiling",
			},
		),
		Action: compileAction,
	}
}

func compileAction(ctx context.Context, cmd *cli.Command) error {
	job, err := loadJob(cmd)
	if err != nil {
		return err
	}

	var flags script.PrepareFlags
	if cmd.Bool("no-cache-load") {
		flags |= script.PrepareSkipCacheLoad
	}
	if cmd.Bool("no-cache-store") {
		flags |= script.PrepareSkipCacheStore
	}

	return withScript(ctx, job, newHandler(cmd), func(s *script.Script) error {
		if err := s.PrepareExecutable(ctx, job.Cache.Dir, job.Cache.Key, flags); err != nil {
			return compileError(s, err)
		}
		_, err := fmt.Fprint(cmd.Root().Writer, renderSummary(s))
		return err
	})
}

// compileError prefers the compiler diagnostic over the wrapped error.
func compileError(s *script.Script, err error) error {
	if !errors.Is(err, script.ErrCompiler) {
		return err
	}
	if msg, ok := s.CompilerErrorMessage(); ok && msg != "" {
		return fmt.Errorf("compile failed:\n%s", msg)
	}
	return err
}
