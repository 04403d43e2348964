package pool

import (
	"errors"
	"fmt"

	"primepool/internal/oracle"
)

var (
	// ErrInvalidConfig is returned before any worker starts when the pool
	// configuration is unusable.
	ErrInvalidConfig = errors.New("invalid pool configuration")

	// ErrAlreadyRun is returned when Run is called on a pool that has
	// already been run.
	ErrAlreadyRun = errors.New("pool has already been run")

	// ErrWorkerExited is the cause recorded when a worker goroutine unwinds
	// without a panic and without observing shutdown (runtime.Goexit).
	ErrWorkerExited = errors.New("worker exited without shutdown")
)

// WorkerError reports a worker that left its poll loop other than through
// shutdown.
type WorkerError struct {
	Worker int
	Task   oracle.Task
	Cause  any
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d failed on task %d: %v", e.Worker, e.Task, e.Cause)
}

// Unwrap returns Cause when it is an error.
func (e *WorkerError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
