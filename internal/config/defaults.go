package config

const (
	defaultStateDir              = "~/.local/share/vidqueue"
	defaultLogDir                = "~/.local/share/vidqueue/logs"
	defaultWorkDir               = "~/.cache/vidqueue/work"
	defaultOutputDir             = "~/Videos/vidqueue"
	defaultFFmpeg                = "ffmpeg"
	defaultFFprobe               = "ffprobe"
	defaultVideoEncoder          = "x265"
	defaultVideoQuality          = 22
	defaultVideoPreset           = "medium"
	defaultAudioEncoder          = "libopus"
	defaultAudioBitrate          = "160k"
	defaultNotifyRequestTimeout  = 10
	defaultReconcileIntervalMS   = 500
	defaultStopPollIntervalMS    = 100
	defaultTerminateGraceSeconds = 10
	defaultUpdateBuffer          = 256
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultHistoryRetentionDays  = 180
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
		},
		Tools: Tools{
			FFmpeg:       defaultFFmpeg,
			FFprobe:      defaultFFprobe,
			VideoEncoder: defaultVideoEncoder,
			VideoQuality: defaultVideoQuality,
			VideoPreset:  defaultVideoPreset,
			AudioEncoder: defaultAudioEncoder,
			AudioBitrate: defaultAudioBitrate,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobStarted:     true,
			QueueDrained:   true,
			Errors:         true,
		},
		Workflow: Workflow{
			ReconcileIntervalMS:   defaultReconcileIntervalMS,
			StopPollIntervalMS:    defaultStopPollIntervalMS,
			TerminateGraceSeconds: defaultTerminateGraceSeconds,
			UpdateBuffer:          defaultUpdateBuffer,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
	}
}
