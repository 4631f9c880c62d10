package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vidqueue/internal/daemonctl"
	"vidqueue/internal/daemonrun"
)

const (
	daemonStartTimeout = 10 * time.Second
	daemonStopGrace    = 30 * time.Second
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the vidqueue daemon process",
	}

	var logLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Launch the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
				LogLevel:   logLevel,
			}, daemonStartTimeout)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for the daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon process, terminating any running job",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), daemonStopGrace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var runLogLevel string
	var development bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    runLogLevel,
				Development: development,
				Foreground:  true,
			})
		},
	}
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Override logging.level")
	runCmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")

	daemonCmd.AddCommand(startCmd, stopCmd, runCmd)
	return daemonCmd
}
