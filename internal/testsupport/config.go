package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"vidqueue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Timings are shortened so queue tests settle quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Workflow.ReconcileIntervalMS = 10
	cfgVal.Workflow.StopPollIntervalMS = 5
	cfgVal.Workflow.TerminateGraceSeconds = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithVideoEncoder selects the video encoder on the test config.
func WithVideoEncoder(encoder string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.VideoEncoder = encoder
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "vspipe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0")
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// WithToolScript installs an executable shell script as the named tool and
// points the matching config field at it.
func WithToolScript(tool, body string) ConfigOption {
	return func(b *configBuilder) {
		path := WriteScript(b.t, filepath.Join(b.baseDir, "tools"), tool, body)
		switch tool {
		case "ffmpeg":
			b.cfg.Tools.FFmpeg = path
		case "ffprobe":
			b.cfg.Tools.FFprobe = path
		case "vspipe":
			b.cfg.Tools.VSPipe = path
		default:
			b.t.Fatalf("unknown tool %q", tool)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
