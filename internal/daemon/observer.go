package daemon

import (
	"log/slog"

	"vidqueue/internal/jobtree"
	"vidqueue/internal/logging"
)

// logObserver writes status changes and sampled step progress to the daemon
// log. It runs on the main loop, so its sampler map needs no lock.
type logObserver struct {
	logger   *slog.Logger
	samplers map[*jobtree.Step]*logging.ProgressSampler
}

func newLogObserver(logger *slog.Logger) *logObserver {
	return &logObserver{
		logger:   logging.NewComponentLogger(logger, "queue"),
		samplers: make(map[*jobtree.Step]*logging.ProgressSampler),
	}
}

func (o *logObserver) StatusChanged(ref jobtree.Ref, status jobtree.Status) {
	job := ref.Owner()
	if job == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldJobID, job.ID()),
		logging.String("status", status.String()),
	}
	step, isStep := ref.(*jobtree.Step)
	if isStep {
		attrs = append(attrs, logging.String(logging.FieldStep, step.Label()))
		if status.Terminal() {
			delete(o.samplers, step)
		}
	} else {
		attrs = append(attrs, logging.String("name", job.Name()))
	}
	o.logger.Debug("status changed", logging.Args(attrs...)...)
}

func (o *logObserver) ProgressChanged(ref jobtree.Ref, fraction float64) {
	step, ok := ref.(*jobtree.Step)
	if !ok {
		return
	}
	sampler := o.samplers[step]
	if sampler == nil {
		sampler = logging.NewProgressSampler(10)
		o.samplers[step] = sampler
	}
	if !sampler.ShouldLog(fraction, step.Label()) || step.Owner() == nil {
		return
	}
	o.logger.Info("step progress",
		logging.String(logging.FieldJobID, step.Owner().ID()),
		logging.String(logging.FieldStep, step.Label()),
		logging.Float64("percent", fraction*100),
	)
}
