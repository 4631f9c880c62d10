package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidqueue/internal/config"
	"vidqueue/internal/ipc"
)

func newQueueCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newStartCommand(ctx),
		newStopCommand(ctx),
		newListCommand(ctx),
		newDeleteCommand(ctx),
		newClearCommand(ctx),
		newHistoryCommand(ctx),
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Plan source files and append their jobs to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				paths = append(paths, path)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add(paths)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				failed := 0
				for _, result := range resp.Results {
					if result.Error != "" {
						failed++
						fmt.Fprintf(out, "Skipped %s: %s\n", result.Source, result.Error)
						continue
					}
					fmt.Fprintf(out, "Queued %s as job %s (%d steps)\n", result.Source, shortJobID(result.JobID), result.Steps)
				}
				if failed == len(resp.Results) {
					return errors.New("no files were queued")
				}
				return nil
			})
		},
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start processing the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if err := refusal(resp.Result); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue started")
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the queue, terminating the running tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if err := refusal(resp.Result); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue stopped")
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var showSteps bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show queued jobs in execution order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				printJobList(cmd.OutOrStdout(), resp, showSteps)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&showSteps, "steps", "s", false, "Show every step of each job")
	return cmd
}

func printJobList(out io.Writer, resp *ipc.ListResponse, showSteps bool) {
	if len(resp.Jobs) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	state := "running"
	if resp.Idle {
		state = "idle"
	}

	if showSteps {
		rows := make([][]string, 0)
		for _, job := range resp.Jobs {
			for _, step := range job.Steps {
				rows = append(rows, []string{
					shortJobID(job.ID),
					strconv.Itoa(step.Index),
					step.Label,
					step.Status,
					progressCell(step.Progress),
					step.Error,
				})
			}
		}
		fmt.Fprint(out, renderTable(
			[]string{"Job", "Step", "Label", "Status", "Progress", "Error"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		fmt.Fprintf(out, "Queue %s\n", state)
		return
	}

	rows := make([][]string, 0, len(resp.Jobs))
	for _, job := range resp.Jobs {
		rows = append(rows, []string{
			strconv.Itoa(job.Index + 1),
			shortJobID(job.ID),
			job.Name,
			job.Status,
			progressCell(jobProgress(job)),
			currentStep(job),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"#", "Job", "Name", "Status", "Progress", "Step"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		"", "", fmt.Sprintf("%d jobs", len(resp.Jobs)), state,
	))
}

// jobProgress averages step progress; finished steps count as complete.
func jobProgress(job ipc.Job) float64 {
	if len(job.Steps) == 0 {
		return 0
	}
	var total float64
	for _, step := range job.Steps {
		switch step.Status {
		case "done", "failed":
			total++
		default:
			total += step.Progress
		}
	}
	return total / float64(len(job.Steps))
}

func currentStep(job ipc.Job) string {
	for _, step := range job.Steps {
		switch step.Status {
		case "running", "failed":
			return step.Label
		}
	}
	for _, step := range job.Steps {
		if step.Status == "waiting" {
			return step.Label
		}
	}
	return ""
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <job> [step]",
		Aliases: []string{"rm"},
		Short:   "Remove a job that is not running",
		Long: "Remove a job that is not running. <job> is a job id or a unique prefix of one. " +
			"Naming a step removes the job that owns it.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step := -1
			if len(args) == 2 {
				parsed, err := strconv.Atoi(strings.TrimSpace(args[1]))
				if err != nil || parsed < 0 {
					return fmt.Errorf("invalid step %q", args[1])
				}
				step = parsed
			}
			return ctx.withClient(func(client *ipc.Client) error {
				jobID, err := resolveJobID(client, args[0])
				if err != nil {
					return err
				}
				resp, err := client.Delete(jobID, step)
				if err != nil {
					return err
				}
				if err := refusal(resp.Result); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s deleted\n", shortJobID(jobID))
				return nil
			})
		},
	}
}

// resolveJobID expands a unique id prefix against the current job tree.
// Unmatched input is passed through so the daemon reports it.
func resolveJobID(client *ipc.Client, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("job id is required")
	}
	resp, err := client.List()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, job := range resp.Jobs {
		if job.ID == arg {
			return job.ID, nil
		}
		if strings.HasPrefix(job.ID, arg) {
			matches = append(matches, job.ID)
		}
	}
	switch len(matches) {
	case 0:
		return arg, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("job prefix %q is ambiguous (%d matches)", arg, len(matches))
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every job from an idle queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Clear()
				if err != nil {
					return err
				}
				if err := refusal(resp.Result); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Queue cleared")
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				printHistory(cmd.OutOrStdout(), resp.Runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printHistory(out io.Writer, runs []ipc.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No finished jobs")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		failure := ""
		if run.FailedStep != "" {
			failure = run.FailedStep
			if run.FailureKind != "" {
				failure = fmt.Sprintf("%s (%s)", failure, run.FailureKind)
			}
		}
		rows = append(rows, []string{
			run.FinishedAt.Local().Format("2006-01-02 15:04"),
			shortJobID(run.JobID),
			run.Name,
			run.Outcome,
			strconv.Itoa(run.Steps),
			run.Duration.Round(time.Second).String(),
			failure,
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Finished", "Job", "Name", "Outcome", "Steps", "Duration", "Failed step"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
