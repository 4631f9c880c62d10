package jobtree

import (
	"math"
	"time"

	"github.com/google/uuid"

	"vidqueue/internal/worker"
)

// Ref identifies either a Job or one of its Steps.
type Ref interface {
	// Name is the job source name or the step label.
	Name() string
	// Owner is the job itself, or the step's parent job. Nil once removed.
	Owner() *Job
}

// Step is one stage of a Job wrapping a single unit of work.
type Step struct {
	job      *Job
	index    int
	label    string
	handle   *worker.Handle
	status   Status
	progress float64
}

// NewStep creates a detached step. Attach it to a job with Job.Attach.
func NewStep(label string) *Step {
	return &Step{label: label, index: -1}
}

func (s *Step) Name() string           { return s.label }
func (s *Step) Label() string          { return s.label }
func (s *Step) Owner() *Job            { return s.job }
func (s *Step) Index() int             { return s.index }
func (s *Step) Handle() *worker.Handle { return s.handle }
func (s *Step) Status() Status         { return s.status }
func (s *Step) Progress() float64      { return s.progress }

// SetStatus moves the step to next unless it is already terminal.
func (s *Step) SetStatus(next Status) bool {
	if !advance(&s.status, next) {
		return false
	}
	if next == StatusDone {
		s.progress = 1
	}
	return true
}

// SetProgress records a completion fraction, clamped to [0,1]. It reports
// whether the stored value changed.
func (s *Step) SetProgress(fraction float64) bool {
	if s.status.Terminal() {
		return false
	}
	switch {
	case math.IsNaN(fraction) || fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	if fraction == s.progress {
		return false
	}
	s.progress = fraction
	return true
}

// Job is one end-to-end conversion built from ordered steps.
type Job struct {
	tree      *Tree
	id        string
	name      string
	status    Status
	steps     []*Step
	submitted time.Time
}

func (j *Job) ID() string           { return j.id }
func (j *Job) Name() string         { return j.name }
func (j *Job) Owner() *Job          { return j }
func (j *Job) Status() Status       { return j.status }
func (j *Job) Submitted() time.Time { return j.submitted }

// Steps returns the job's steps in execution order.
func (j *Job) Steps() []*Step {
	out := make([]*Step, len(j.steps))
	copy(out, j.steps)
	return out
}

// Step returns the step at index i, or nil.
func (j *Job) Step(i int) *Step {
	if i < 0 || i >= len(j.steps) {
		return nil
	}
	return j.steps[i]
}

// Attach appends a detached step bound to its unit of work.
func (j *Job) Attach(step *Step, handle *worker.Handle) *Step {
	step.job = j
	step.index = len(j.steps)
	step.handle = handle
	j.steps = append(j.steps, step)
	return step
}

// LastHandle returns the handle of the most recently attached step.
func (j *Job) LastHandle() *worker.Handle {
	if len(j.steps) == 0 {
		return nil
	}
	return j.steps[len(j.steps)-1].handle
}

// Running reports whether any step's unit of work is executing.
func (j *Job) Running() bool {
	for _, step := range j.steps {
		if step.handle != nil && step.handle.Running() {
			return true
		}
	}
	return false
}

// Derive computes the job status from the current step statuses.
func (j *Job) Derive() Status {
	statuses := make([]Status, len(j.steps))
	for i, step := range j.steps {
		statuses[i] = step.status
	}
	return DeriveJobStatus(statuses)
}

// SetStatus moves the job to next unless it is already terminal.
func (j *Job) SetStatus(next Status) bool {
	return advance(&j.status, next)
}

func (j *Job) detach() {
	for i := len(j.steps) - 1; i >= 0; i-- {
		j.steps[i].job = nil
		j.steps[i] = nil
	}
	j.steps = nil
	j.tree = nil
}

// Tree is the ordered collection of jobs. Order is submission order and also
// execution order. It is not safe for concurrent use; the scheduler confines
// it to the main loop goroutine.
type Tree struct {
	jobs []*Job
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Append adds a new empty job at the end of the tree.
func (t *Tree) Append(name string) *Job {
	job := &Job{
		tree:      t,
		id:        uuid.NewString(),
		name:      name,
		submitted: time.Now().UTC(),
	}
	t.jobs = append(t.jobs, job)
	return job
}

// Remove detaches the job's steps and then the job itself.
func (t *Tree) Remove(job *Job) bool {
	idx := t.Index(job)
	if idx < 0 {
		return false
	}
	job.detach()
	copy(t.jobs[idx:], t.jobs[idx+1:])
	t.jobs[len(t.jobs)-1] = nil
	t.jobs = t.jobs[:len(t.jobs)-1]
	return true
}

// Len returns the number of jobs.
func (t *Tree) Len() int { return len(t.jobs) }

// Jobs returns the jobs in order.
func (t *Tree) Jobs() []*Job {
	out := make([]*Job, len(t.jobs))
	copy(out, t.jobs)
	return out
}

// At returns the job at index i, or nil.
func (t *Tree) At(i int) *Job {
	if i < 0 || i >= len(t.jobs) {
		return nil
	}
	return t.jobs[i]
}

// Index returns the position of job, or -1.
func (t *Tree) Index(job *Job) int {
	if job == nil || job.tree != t {
		return -1
	}
	for i, candidate := range t.jobs {
		if candidate == job {
			return i
		}
	}
	return -1
}

// Find returns the job with the given id.
func (t *Tree) Find(id string) *Job {
	for _, job := range t.jobs {
		if job.id == id {
			return job
		}
	}
	return nil
}

// Next returns the sibling after job, or nil.
func (t *Tree) Next(job *Job) *Job {
	idx := t.Index(job)
	if idx < 0 {
		return nil
	}
	return t.At(idx + 1)
}

// Prev returns the sibling before job, or nil.
func (t *Tree) Prev(job *Job) *Job {
	idx := t.Index(job)
	if idx <= 0 {
		return nil
	}
	return t.jobs[idx-1]
}

// IsLast reports whether job has no next sibling.
func (t *Tree) IsLast(job *Job) bool {
	idx := t.Index(job)
	return idx >= 0 && idx == len(t.jobs)-1
}

// Clear removes every job.
func (t *Tree) Clear() {
	for _, job := range t.jobs {
		job.detach()
	}
	t.jobs = nil
}
