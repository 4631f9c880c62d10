package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	draptolib "github.com/five82/drapto"

	"vidqueue/internal/logging"
)

// encodeDrapto runs the drapto library in process. The encode is registered
// with the tracker through its cancel func so a queue stop can end it.
func (p *Planner) encodeDrapto(ctx context.Context, label, input, outDir string, progress func(float64)) error {
	encoder, err := draptolib.New(draptolib.WithResponsive())
	if err != nil {
		return classify(ctx, label, "drapto", fmt.Errorf("create encoder: %w", err))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if p.tracker != nil {
		activity, err := p.tracker.TrackFunc("drapto", cancel)
		if err != nil {
			return classify(ctx, label, "drapto", err)
		}
		defer activity.Release()
	}

	logger := logging.WithContext(ctx, p.logger)
	reporter := newDraptoReporter(progress, logger)
	if _, err := encoder.EncodeWithReporter(ctx, input, outDir, reporter); err != nil {
		return classify(ctx, label, "drapto", err)
	}
	if reporter.failed != nil {
		return classify(ctx, label, "drapto", reporter.failed)
	}
	return nil
}

// draptoReporter forwards drapto progress as fractions and everything else
// to the log.
type draptoReporter struct {
	progress func(float64)
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
	failed   error
}

func newDraptoReporter(progress func(float64), logger *slog.Logger) *draptoReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &draptoReporter{progress: progress, logger: logger, sampler: logging.NewProgressSampler(10)}
}

func (r *draptoReporter) report(percent float64, stage string) {
	fraction := min(max(percent/100, 0), 1)
	if r.progress != nil {
		r.progress(fraction)
	}
	if r.sampler.ShouldLog(fraction, stage) {
		r.logger.Info("drapto progress",
			logging.String("stage", stage),
			logging.Float64("percent", percent),
		)
	}
}

func (r *draptoReporter) Hardware(s draptolib.HardwareSummary) {
	r.logger.Debug("drapto hardware", logging.String("hostname", s.Hostname))
}

func (r *draptoReporter) Initialization(s draptolib.InitializationSummary) {
	r.logger.Info("drapto initialized",
		logging.String("input", s.InputFile),
		logging.String("output", s.OutputFile),
		logging.Any("duration", s.Duration),
		logging.Any("resolution", s.Resolution),
		logging.Any("dynamic_range", s.DynamicRange),
	)
}

func (r *draptoReporter) StageProgress(s draptolib.StageProgress) {
	r.report(float64(s.Percent), s.Stage)
}

func (r *draptoReporter) CropResult(s draptolib.CropSummary) {
	r.logger.Info("drapto crop detection",
		logging.Any("crop", s.Crop),
		logging.Bool("required", s.Required),
		logging.Bool("disabled", s.Disabled),
	)
}

func (r *draptoReporter) EncodingConfig(s draptolib.EncodingConfigSummary) {
	r.logger.Info("drapto encoding config",
		logging.Any("encoder", s.Encoder),
		logging.Any("preset", s.Preset),
		logging.Any("quality", s.Quality),
		logging.Any("audio_codec", s.AudioCodec),
	)
}

func (r *draptoReporter) EncodingStarted(totalFrames uint64) {
	r.sampler.Reset()
	r.logger.Info("drapto encoding started", logging.Uint64("total_frames", totalFrames))
}

func (r *draptoReporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	r.report(float64(s.Percent), "encoding")
}

func (r *draptoReporter) ValidationComplete(s draptolib.ValidationSummary) {
	if s.Passed {
		r.logger.Info("drapto validation passed", logging.Int("checks", len(s.Steps)))
		return
	}
	for _, step := range s.Steps {
		if step.Passed {
			continue
		}
		logging.WarnWithContext(r.logger, "drapto validation check failed", "drapto_validation_failed",
			logging.String("check", step.Name),
			logging.Any("details", step.Details),
			logging.String(logging.FieldErrorHint, "inspect the encoded file before muxing"),
			logging.String(logging.FieldImpact, "video step marked failed"),
		)
	}
	r.failed = errors.New("drapto validation failed")
}

func (r *draptoReporter) EncodingComplete(s draptolib.EncodingOutcome) {
	if r.progress != nil {
		r.progress(1)
	}
	r.logger.Info("drapto encoding complete",
		logging.String("output", s.OutputPath),
		logging.Int64("original_bytes", int64(s.OriginalSize)),
		logging.Int64("encoded_bytes", int64(s.EncodedSize)),
		logging.Any("elapsed", s.TotalTime),
	)
}

func (r *draptoReporter) Warning(message string) {
	logging.WarnWithContext(r.logger, "drapto warning", "drapto_warning",
		logging.String("detail", message),
		logging.String(logging.FieldErrorHint, "review drapto output for the affected file"),
	)
}

func (r *draptoReporter) Error(e draptolib.ReporterError) {
	r.logger.Error("drapto error",
		logging.String("title", e.Title),
		logging.String("detail", e.Message),
		logging.Any("context", e.Context),
		logging.Any("suggestion", e.Suggestion),
	)
}

func (r *draptoReporter) OperationComplete(message string) {
	r.logger.Debug("drapto operation complete", logging.String("detail", message))
}

func (r *draptoReporter) BatchStarted(s draptolib.BatchStartInfo) {
	r.logger.Debug("drapto batch started", logging.Any("files", s.TotalFiles))
}

func (r *draptoReporter) FileProgress(s draptolib.FileProgressContext) {
	r.logger.Debug("drapto file progress",
		logging.Any("current", s.CurrentFile),
		logging.Any("total", s.TotalFiles),
	)
}

func (r *draptoReporter) BatchComplete(s draptolib.BatchSummary) {
	r.logger.Debug("drapto batch complete",
		logging.Any("succeeded", s.SuccessfulCount),
		logging.Any("total", s.TotalFiles),
	)
}

var _ draptolib.Reporter = (*draptoReporter)(nil)
