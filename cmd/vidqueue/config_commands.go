package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vidqueue/internal/config"
	"vidqueue/internal/deps"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create and check the configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{skipConfigLoadAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Next: review paths.output_dir and tools.video_encoder, then run `vidqueue daemon start`.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return path, nil
}

// newConfigValidateCommand loads and validates the file, then prints the
// effective settings. Missing tools are reported but do not fail validation;
// the daemon refuses the affected steps at run time.
func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration and show effective settings",
		Annotations: map[string]string{skipConfigLoadAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source += " (not found; defaults used)"
			}
			fmt.Fprintf(out, "Config: %s\n", source)
			printEffectiveConfig(out, cfg)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func printEffectiveConfig(out io.Writer, cfg *config.Config) {
	topic := cfg.Notifications.NtfyTopic
	if topic == "" {
		topic = "(disabled)"
	}
	settings := [][]string{
		{"paths.output_dir", cfg.Paths.OutputDir},
		{"paths.work_dir", cfg.Paths.WorkDir},
		{"paths.log_dir", cfg.Paths.LogDir},
		{"tools.video_encoder", cfg.Tools.VideoEncoder},
		{"tools.video_quality", strconv.Itoa(cfg.Tools.VideoQuality)},
		{"tools.audio_encoder", cfg.Tools.AudioEncoder},
		{"tools.keep_intermediate", strconv.FormatBool(cfg.Tools.KeepIntermediate)},
		{"notifications.ntfy_topic", topic},
		{"history.enabled", strconv.FormatBool(cfg.History.Enabled)},
	}
	fmt.Fprint(out, renderTable([]string{"Setting", "Value"}, settings, []columnAlignment{alignLeft, alignLeft}))

	var tools [][]string
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		state := "ok"
		switch {
		case status.Available:
		case status.Optional:
			state = "missing (optional)"
		default:
			state = "missing"
		}
		tools = append(tools, []string{status.Name, status.Command, state})
	}
	fmt.Fprint(out, renderTable([]string{"Tool", "Command", "State"}, tools, []columnAlignment{alignLeft, alignLeft, alignLeft}))
}
