package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vidqueue/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := daemonctl.BuildStatusSnapshot(ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, snap)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if !snap.Reachable {
				fmt.Fprintln(stdout, renderStatusLine("vidqueue", statusError, "Not running", colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("vidqueue", statusOK, "Running (pid "+strconv.Itoa(snap.Status.PID)+")", colorize))
				queueKind, queueText := statusInfo, "Idle"
				if !snap.Status.QueueIdle {
					queueKind, queueText = statusOK, "Processing"
				}
				fmt.Fprintln(stdout, renderStatusLine("Queue", queueKind, queueText, colorize))
				if snap.Status.Activity != "" {
					fmt.Fprintln(stdout, renderStatusLine("Activity", statusInfo, snap.Status.Activity, colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, snap.Status.SocketPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Log", statusInfo, snap.Status.LogPath, colorize))
				if snap.Status.HistoryPath != "" {
					fmt.Fprintln(stdout, renderStatusLine("History", statusInfo, snap.Status.HistoryPath, colorize))
				}
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(snap.Dependencies, snap.Summary, colorize) {
				fmt.Fprintln(stdout, line)
			}

			if !snap.Reachable {
				return nil
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Jobs", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := jobCountRows(snap.Status.JobCounts)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
