// Package engine wires the scheduling subsystems together: the pending
// queue, concurrency limiter, notifier, backoff strategy, refund
// calculator, and store. It provides the application-level operations
// for creating, dispatching, progressing, completing, failing, and
// cancelling render jobs.
//
// This package exists to break the import cycle: the root rendersched
// package defines Entity and the sentinel errors (imported by job,
// batch, queue, etc.) and so cannot import those packages back. The
// engine package sits above all subsystem packages and below the
// application layer.
//
// # Building an Engine
//
//	eng, err := engine.New(memory.New(),
//	    engine.WithMaxConcurrent(3),
//	    engine.WithQueueCapacity(100),
//	    engine.WithBackoff(backoff.NewExponentialWithJitter(2*time.Second, 5*time.Minute)),
//	    engine.WithDispatcher(renderFarm),
//	)
//
// # Lifecycle
//
// Callers create jobs with CreateJob or CreateBatchRender. ProcessQueue
// moves pending jobs into rendering while the concurrency bound allows;
// it runs reactively after every transition that frees capacity and may
// also be invoked periodically. The execution backend reports back
// through UpdateProgress, CompleteJob, and FailJob.
//
// All mutating operations share one mutex, so queue contents, the
// running-job count, and per-job status always change together.
// Notifications and dispatcher callbacks are delivered after the
// critical section, in event order, so a callback may safely call back
// into the engine.
package engine
