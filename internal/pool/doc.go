// Package pool runs primality checks on a fixed set of worker goroutines
// that receive work through per-worker single-task slots.
//
// There is no shared queue. The calling goroutine acts as the controller: it
// owns the backlog and repeatedly scans the slots from index 0, placing the
// front of the backlog into the first empty slot it finds. Each worker polls
// only its own slot, checks whatever task it finds, and adds confirmed primes
// to an atomic counter. When the backlog is empty the controller raises a
// shutdown flag and joins every worker before reading the counter.
//
// # Basic Usage
//
//	count, err := pool.Run(ctx, []uint64{4, 7, 9, 11, 15, 2}, 2)
//	// count == 3
//
// For metrics, events or a per-task observer, build the pool explicitly:
//
//	p, err := pool.New(pool.Config{
//	    Workers: 8,
//	    Metrics: metrics.New(),
//	    Events:  events.NewBus(),
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := p.Run(ctx, tasks)
//
// # Shutdown
//
// A worker loads the shutdown flag before it tries its slot, and exits only
// when the flag was already set and the slot was empty. Since the controller
// stores its last assignment before raising the flag, a task placed just
// before shutdown is always drained.
//
// # Idle Policy
//
// Both the controller and the workers busy-poll. IdlePolicy bounds the cost
// of an empty poll: a few yields first, then exponentially growing sleeps up
// to MaxSleep. A zero MaxSleep keeps pure spinning. The policy never changes
// which tasks are processed or the final count.
//
// # Failure
//
// A panic inside the oracle ends that worker abnormally. Run notices the
// failure while dispatching, shuts the pool down, joins the remaining workers
// and returns a *WorkerError. There is no partial result.
package pool
