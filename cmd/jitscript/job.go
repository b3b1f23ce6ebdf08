package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/robbyt/go-jitscript"
	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/internal/config"
	"github.com/robbyt/go-jitscript/internal/logging"
)

// jobFlags are shared by every command that builds a script. Flags override the job file.
func jobFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a TOML job file",
		},
		&cli.StringFlag{
			Name:    "machine",
			Aliases: []string{"m"},
			Usage:   "Compiler backend (wasm, starlark, risor)",
		},
		&cli.StringFlag{
			Name:  "main",
			Usage: "Path to the main source",
		},
		&cli.StringFlag{
			Name:  "lib",
			Usage: "Path to the support library",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Cache directory",
		},
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "Cache key",
		},
		&cli.StringSliceFlag{
			Name:  "symbol",
			Usage: "External symbol as name=address, may be repeated",
		},
	}
}

// loadJob reads the job file, if any, and applies the command line on top of it.
func loadJob(cmd *cli.Command) (*config.Config, error) {
	job := &config.Config{Version: config.Version}
	if path := cmd.String("config"); path != "" {
		var err error
		if job, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if v := cmd.String("machine"); v != "" {
		job.Machine = v
	}
	if v := cmd.String("main"); v != "" {
		job.Main.Path = v
	}
	if v := cmd.String("lib"); v != "" {
		job.Library = &config.Source{Path: v}
	}
	if v := cmd.String("cache-dir"); v != "" {
		job.Cache.Dir = v
	}
	if v := cmd.String("key"); v != "" {
		job.Cache.Key = v
	}
	for _, sym := range cmd.StringSlice("symbol") {
		name, addr, ok := strings.Cut(sym, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid symbol %q, expected name=address", sym)
		}
		if job.Symbols == nil {
			job.Symbols = make(map[string]string)
		}
		job.Symbols[name] = addr
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

func newHandler(cmd *cli.Command) slog.Handler {
	return logging.SetupHandler(cmd.String("log-format"), cmd.String("log-level"), cmd.Root().ErrWriter)
}

// newScript builds the script for a job and registers its symbol table.
func newScript(job *config.Config, handler slog.Handler) (*script.Script, error) {
	s, err := jitscript.NewScript(job.Options(handler)...)
	if err != nil {
		return nil, err
	}
	resolver, err := job.Resolver()
	if err != nil {
		return nil, err
	}
	if resolver != nil {
		if err := s.RegisterSymbolCallback(resolver); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// withScript builds the script for a job, runs fn and closes the script.
func withScript(
	ctx context.Context,
	job *config.Config,
	handler slog.Handler,
	fn func(*script.Script) error,
) (err error) {
	s, err := newScript(job, handler)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close(ctx)) }()
	return fn(s)
}
