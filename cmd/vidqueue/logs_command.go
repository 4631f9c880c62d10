package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidqueue/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var job string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the current daemon run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				return fmt.Errorf("--lines must not be negative")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := logs.CurrentPath(cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			// Console logs carry the short id, JSON logs the full one; the short
			// form matches both.
			opts := logs.TailOptions{Offset: -1, Limit: lines, Match: shortJobID(strings.TrimSpace(job))}
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			for {
				result, err := logs.Tail(runCtx, path, opts)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				if !follow {
					return nil
				}
				// A restarted daemon repoints the link; keep following the new run.
				if next, err := logs.CurrentPath(cfg.Paths.LogDir); err == nil && next != path {
					path = next
					result.Offset = 0
				}
				opts = logs.TailOptions{Offset: result.Offset, Follow: true, Wait: time.Second, Match: opts.Match}
			}
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&job, "job", "", "Only show lines mentioning this job id")
	return cmd
}
