package transcode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidqueue/internal/config"
	"vidqueue/internal/logging"
	"vidqueue/internal/media/ffprobe"
	"vidqueue/internal/proc"
	"vidqueue/internal/services"
	"vidqueue/internal/textutil"
)

// ProbeFunc inspects a source file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithProbe replaces ffprobe.Inspect.
func WithProbe(fn ProbeFunc) PlannerOption {
	return func(p *Planner) {
		if fn != nil {
			p.probe = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) PlannerOption {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Planner builds plans for source files using the configured toolchain.
type Planner struct {
	cfg     *config.Config
	runner  *proc.Runner
	tracker *proc.Tracker
	probe   ProbeFunc
	logger  *slog.Logger
}

// NewPlanner returns a planner. The tracker registers in-process encodes so
// the queue can stop them; runner handles external tools.
func NewPlanner(cfg *config.Config, runner *proc.Runner, tracker *proc.Tracker, opts ...PlannerOption) *Planner {
	p := &Planner{
		cfg:     cfg,
		runner:  runner,
		tracker: tracker,
		probe:   ffprobe.Inspect,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "transcode")
	return p
}

// Plan describes how one source becomes one output file.
type Plan struct {
	Source   string
	Name     string
	WorkDir  string
	Output   string
	Duration time.Duration
	Probe    ffprobe.Result
	Tracks   []Track

	planner *Planner
	inputs  []muxInput
}

type muxInput struct {
	kind      Kind
	path      string
	language  string
	title     string
	isDefault bool
}

// Plan probes source and selects its tracks.
func (p *Planner) Plan(ctx context.Context, source string) (*Plan, error) {
	abs, err := filepath.Abs(strings.TrimSpace(source))
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "plan", "stat source", abs, nil)
		}
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "stat source", abs+" is a directory", nil)
	}

	probe, err := p.probe(ctx, p.cfg.Tools.FFprobe, abs)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "plan", "probe source", "", err)
	}

	name := filepath.Base(abs)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = name
	}
	if safe := textutil.SanitizeFileName(stem); safe != "" {
		stem = safe
	}
	plan := &Plan{
		Source:   abs,
		Name:     name,
		WorkDir:  filepath.Join(p.cfg.Paths.WorkDir, textutil.SanitizeToken(stem)+"-"+uuid.NewString()[:8]),
		Output:   filepath.Join(p.cfg.Paths.OutputDir, stem+".mkv"),
		Duration: probe.Duration(),
		Probe:    probe,
		planner:  p,
	}

	if video := probe.StreamsOfType(ffprobe.TypeVideo); len(video) > 0 {
		plan.Tracks = append(plan.Tracks, VideoTrack{Stream: video[0]})
	}
	for i, stream := range probe.StreamsOfType(ffprobe.TypeAudio) {
		plan.Tracks = append(plan.Tracks, AudioTrack{Stream: stream, Number: i + 1})
	}
	for i, stream := range probe.StreamsOfType(ffprobe.TypeSubtitle) {
		plan.Tracks = append(plan.Tracks, TextTrack{Stream: stream, Number: i + 1})
	}
	if len(probe.Chapters) > 0 {
		plan.Tracks = append(plan.Tracks, MenuTrack{Chapters: probe.Chapters})
	}

	if len(plan.Tracks) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "select tracks", "no video or audio streams in "+name, nil)
	}

	p.logger.Info("source planned",
		logging.String("source", abs),
		logging.Int("tracks", len(plan.Tracks)),
		logging.Duration("duration", plan.Duration),
		logging.String(logging.FieldEventType, "source_planned"),
	)
	return plan, nil
}

// Steps returns the full pipeline: every track's steps in track order,
// then mux and cleanup. Calling it again rebuilds the same pipeline, which
// is only safe before any of the returned steps runs.
func (p *Plan) Steps() []StepSpec {
	p.inputs = nil
	var steps []StepSpec
	for _, track := range p.Tracks {
		steps = append(steps, track.Process(p)...)
	}
	steps = append(steps, p.muxStep(), p.cleanupStep())
	return steps
}

func (p *Plan) addInput(in muxInput) {
	p.inputs = append(p.inputs, in)
}

func (p *Plan) cfg() *config.Config { return p.planner.cfg }

func (p *Plan) workPath(name string) string {
	return filepath.Join(p.WorkDir, name)
}

func (p *Plan) ensureWorkDir() error {
	if err := os.MkdirAll(p.WorkDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "", "create work directory", p.WorkDir, err)
	}
	return nil
}

func (p *Plan) cleanupStep() StepSpec {
	return StepSpec{
		Label: "cleanup",
		Payload: func(ctx context.Context, progress func(float64)) error {
			logger := logging.WithContext(ctx, p.planner.logger)
			if p.cfg().Tools.KeepIntermediate {
				logger.Info("keeping intermediate files", logging.String("work_dir", p.WorkDir))
				return nil
			}
			if err := os.RemoveAll(p.WorkDir); err != nil {
				return services.Wrap(services.ErrExternalTool, "cleanup", "remove work directory", p.WorkDir, err)
			}
			if progress != nil {
				progress(1)
			}
			return nil
		},
	}
}
