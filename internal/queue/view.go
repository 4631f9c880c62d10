package queue

import (
	"time"

	"vidqueue/internal/jobtree"
)

// StepView is a read-only copy of a step.
type StepView struct {
	Index    int
	Label    string
	Status   jobtree.Status
	Progress float64
	Error    string
}

// JobView is a read-only copy of a job, safe to hand to other goroutines.
type JobView struct {
	ID        string
	Index     int
	Name      string
	Status    jobtree.Status
	Submitted time.Time
	Steps     []StepView
}

// Snapshot copies the tree. Call it on the main loop.
func (s *Scheduler) Snapshot() []JobView {
	jobs := s.tree.Jobs()
	views := make([]JobView, 0, len(jobs))
	for idx, job := range jobs {
		view := JobView{
			ID:        job.ID(),
			Index:     idx,
			Name:      job.Name(),
			Status:    job.Status(),
			Submitted: job.Submitted(),
		}
		for _, step := range job.Steps() {
			sv := StepView{
				Index:    step.Index(),
				Label:    step.Label(),
				Status:   step.Status(),
				Progress: step.Progress(),
			}
			if err := step.Handle().Err(); err != nil {
				sv.Error = err.Error()
			}
			view.Steps = append(view.Steps, sv)
		}
		views = append(views, view)
	}
	return views
}
