package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/robbyt/go-jitscript/execution/script"
)

var errCacheUnusable = errors.New("cache entry is missing or stale")

func newCheckCmd() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "Report whether a valid cache entry exists for a job",
		Flags:  jobFlags(),
		Action: checkAction,
	}
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	job, err := loadJob(cmd)
	if err != nil {
		return err
	}
	if job.Cache.Dir == "" {
		return errors.New("cache dir and key are required")
	}

	return withScript(ctx, job, newHandler(cmd), func(s *script.Script) error {
		if !s.CheckCache(job.Cache.Dir, job.Cache.Key) {
			if s.IsContextSlotNotAvail() {
				return fmt.Errorf("%w: built for another platform or machine", errCacheUnusable)
			}
			return errCacheUnusable
		}
		_, err := fmt.Fprintf(cmd.Root().Writer, "cache entry %s is valid\n", job.Cache.Key)
		return err
	})
}
