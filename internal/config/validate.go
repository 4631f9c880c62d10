package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTools() error {
	switch c.Tools.VideoEncoder {
	case "x264", "x265", "drapto":
	default:
		return fmt.Errorf("tools.video_encoder: unsupported value %q (want x264, x265 or drapto)", c.Tools.VideoEncoder)
	}
	if c.Tools.VideoQuality < 0 || c.Tools.VideoQuality > 63 {
		return errors.New("tools.video_quality must be between 0 and 63")
	}
	switch c.Tools.AudioEncoder {
	case "libopus", "aac", "flac", "copy":
	default:
		return fmt.Errorf("tools.audio_encoder: unsupported value %q", c.Tools.AudioEncoder)
	}
	if c.Tools.AudioEncoder != "copy" && c.Tools.AudioEncoder != "flac" && c.Tools.AudioBitrate == "" {
		return errors.New("tools.audio_bitrate must be set for lossy audio encoders")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositive("workflow.reconcile_interval_ms", c.Workflow.ReconcileIntervalMS); err != nil {
		return err
	}
	if err := ensurePositive("workflow.stop_poll_interval_ms", c.Workflow.StopPollIntervalMS); err != nil {
		return err
	}
	if err := ensurePositive("workflow.update_buffer", c.Workflow.UpdateBuffer); err != nil {
		return err
	}
	if c.Workflow.TerminateGraceSeconds < 0 {
		return errors.New("workflow.terminate_grace_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must not be negative")
	}
	return nil
}

func ensurePositive(key string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	return nil
}
