package transcode

import (
	"context"
	"fmt"

	"vidqueue/internal/mainloop"
	"vidqueue/internal/queue"
)

// Enqueue creates a job for plan and submits all of its steps in one pass on
// the main loop, so steps of concurrently added jobs never interleave in the
// worker's queue. It returns the new job's id and how many steps it has.
// The plan must not be rebuilt afterwards; its steps share state with it.
func Enqueue(ctx context.Context, loop *mainloop.Loop, sched *queue.Scheduler, plan *Plan) (string, int, error) {
	steps := plan.Steps()
	var (
		jobID     string
		submitErr error
	)
	err := loop.Do(ctx, func() {
		job := sched.NewJob(plan.Name)
		jobID = job.ID()
		for _, spec := range steps {
			if _, err := sched.SubmitStep(job, spec.Label, spec.Payload); err != nil {
				submitErr = fmt.Errorf("submit %q: %w", spec.Label, err)
				return
			}
		}
	})
	if err != nil {
		return "", 0, err
	}
	if submitErr != nil {
		return jobID, 0, submitErr
	}
	return jobID, len(steps), nil
}
