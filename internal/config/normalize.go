package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	c.Tools.VSPipe = strings.TrimSpace(c.Tools.VSPipe)
	c.Tools.VideoEncoder = strings.ToLower(strings.TrimSpace(c.Tools.VideoEncoder))
	if c.Tools.VideoEncoder == "" {
		c.Tools.VideoEncoder = defaultVideoEncoder
	}
	c.Tools.VideoPreset = strings.TrimSpace(c.Tools.VideoPreset)
	if c.Tools.VideoPreset == "" {
		c.Tools.VideoPreset = defaultVideoPreset
	}
	c.Tools.AudioEncoder = strings.ToLower(strings.TrimSpace(c.Tools.AudioEncoder))
	if c.Tools.AudioEncoder == "" {
		c.Tools.AudioEncoder = defaultAudioEncoder
	}
	c.Tools.AudioBitrate = strings.TrimSpace(c.Tools.AudioBitrate)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("VIDQUEUE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "text", "pretty":
		format = "console"
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch level {
	case "":
		level = defaultLogLevel
	case "warning":
		level = "warn"
	}
	c.Logging.Level = level
}
