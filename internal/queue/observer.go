package queue

import (
	"context"

	"vidqueue/internal/history"
	"vidqueue/internal/jobtree"
)

// Payload performs one stage of a job. Progress accepts fractions in [0,1]
// and may be called from any goroutine.
type Payload func(ctx context.Context, progress func(float64)) error

// Observer receives status and progress changes. Both methods run on the
// main loop goroutine, so implementations need no locking for state they
// only touch from the loop.
type Observer interface {
	StatusChanged(ref jobtree.Ref, status jobtree.Status)
	ProgressChanged(ref jobtree.Ref, fraction float64)
}

// Terminator stops the in-flight external activity and blocks until it has
// exited. proc.Tracker implements it.
type Terminator interface {
	Terminate(ctx context.Context) error
}

// Ledger records finished jobs. history.Store implements it.
type Ledger interface {
	Record(ctx context.Context, run history.Run) (int64, error)
}

type noopObserver struct{}

func (noopObserver) StatusChanged(jobtree.Ref, jobtree.Status) {}
func (noopObserver) ProgressChanged(jobtree.Ref, float64)      {}
